package parser

import "testing"

func TestParseAutoSniffsXML(t *testing.T) {
	body := []byte(`<list pagecount="1" recordcount="1"><video><id>42</id><name><![CDATA[禁闭岛]]></name><year>2010</year><area>美国</area><director>马丁·斯科塞斯</director><dl><dd flag="hd"><![CDATA[第1集$http://a.com/1.m3u8]]></dd></dl></video></list>`)

	list, err := Parse(body, FormatAuto)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(list.List) != 1 {
		t.Fatalf("len(List) = %d, want 1", len(list.List))
	}
	v := list.List[0]
	if v.Name != "禁闭岛" {
		t.Errorf("Name = %q", v.Name)
	}
	if v.Year != "2010" || v.Area != "美国" {
		t.Errorf("Year/Area = %q/%q", v.Year, v.Area)
	}
	if v.PlayFlag != "hd" || v.PlayRaw != "第1集$http://a.com/1.m3u8" {
		t.Errorf("PlayFlag/PlayRaw = %q/%q", v.PlayFlag, v.PlayRaw)
	}
}

func TestParseAutoSniffsJSON(t *testing.T) {
	body := []byte(`{"code":1,"msg":"ok","page":1,"pagecount":2,"list":[{"vod_name":"Test Movie","vod_year":"2020","vod_play_url":"Ep1$http://x.com/1.m3u8"}]}`)

	list, err := Parse(body, FormatAuto)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if list.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", list.PageCount)
	}
	if len(list.List) != 1 || list.List[0].Name != "Test Movie" {
		t.Fatalf("unexpected list: %+v", list.List)
	}
}

func TestParseToleratesBareFieldNames(t *testing.T) {
	body := []byte(`{"list":[{"name":"Bare Name Movie","year":"1999"}]}`)
	list, err := Parse(body, FormatJSON)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if list.List[0].Name != "Bare Name Movie" || list.List[0].Year != "1999" {
		t.Errorf("got %+v", list.List[0])
	}
}

func TestParseEmptyBodyFails(t *testing.T) {
	_, err := Parse([]byte("   "), FormatAuto)
	if err == nil {
		t.Fatal("expected error for empty body")
	}
	var pe *ParseError
	if !isParseError(err, &pe) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestParseUnrecognizedShapeFails(t *testing.T) {
	_, err := Parse([]byte("not json or xml"), FormatAuto)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseXMLFallsBackToRSSAndItem(t *testing.T) {
	body := []byte(`<rss><item><vod_name>Show</vod_name><vod_year>2015</vod_year></item></rss>`)
	list, err := Parse(body, FormatXML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(list.List) != 1 || list.List[0].Name != "Show" {
		t.Fatalf("got %+v", list.List)
	}
}

func isParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if ok {
		*target = pe
	}
	return ok
}
