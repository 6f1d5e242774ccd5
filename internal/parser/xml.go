package parser

import (
	"encoding/xml"
	"strings"
)

// xmlRoot matches both accepted root shapes (<list> primary, <rss> fallback) since
// encoding/xml only cares about element name via explicit field tags, not the
// document's root tag; both <video> and <item> children are captured so either
// naming convention decodes into the same slice pool.
type xmlRoot struct {
	Page        int        `xml:"page,attr"`
	PageCount   int        `xml:"pagecount,attr"`
	RecordCount int        `xml:"recordcount,attr"`
	Videos      []videoXML `xml:"video"`
	Items       []videoXML `xml:"item"`
}

type videoXML struct {
	ID       string `xml:"id"`
	VodID    string `xml:"vod_id"`
	Name     string `xml:"name"`
	VodName  string `xml:"vod_name"`
	Pic      string `xml:"pic"`
	VodPic   string `xml:"vod_pic"`
	Area     string `xml:"area"`
	VodArea  string `xml:"vod_area"`
	Year     string `xml:"year"`
	VodYear  string `xml:"vod_year"`
	Actor    string `xml:"actor"`
	VodActor string `xml:"vod_actor"`
	Director string `xml:"director"`
	VodDir   string `xml:"vod_director"`
	Content  string `xml:"content"`
	VodCont  string `xml:"vod_content"`
	Remarks  string `xml:"remarks"`
	VodRem   string `xml:"vod_remarks"`
	TypeID   string `xml:"type_id"`
	TypeName string `xml:"type_name"`
	Score    string `xml:"score"`
	VodScore string `xml:"vod_score"`
	Tag      string `xml:"tag"`
	VodTag   string `xml:"vod_tag"`
	DL       dlXML  `xml:"dl"`
}

type dlXML struct {
	DD []ddXML `xml:"dd"`
}

type ddXML struct {
	Flag    string `xml:"flag,attr"`
	Content string `xml:",chardata"`
}

// parseXML decodes the CMS XML dialect. Root element name is intentionally not
// checked (both <list> and <rss> roots are accepted for the same field layout).
func parseXML(body []byte) (*ParsedVideoList, error) {
	var root xmlRoot
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, &ParseError{Reason: "invalid XML: " + err.Error()}
	}

	videos := root.Videos
	if len(videos) == 0 {
		videos = root.Items
	}

	out := &ParsedVideoList{
		Page:      root.Page,
		PageCount: root.PageCount,
		Total:     root.RecordCount,
	}
	if out.Page == 0 {
		out.Page = 1
	}
	if out.PageCount == 0 {
		out.PageCount = 1
	}

	for _, v := range videos {
		out.List = append(out.List, parseXMLVideo(v))
	}
	return out, nil
}

func parseXMLVideo(v videoXML) ParsedVideo {
	flag, raw := firstNonEmptyDD(v.DL.DD)
	return ParsedVideo{
		ID:       coalesce(v.VodID, v.ID),
		Name:     coalesce(v.VodName, v.Name),
		Pic:      coalesce(v.VodPic, v.Pic),
		Area:     coalesce(v.VodArea, v.Area),
		Year:     coalesce(v.VodYear, v.Year),
		Actor:    coalesce(v.VodActor, v.Actor),
		Director: coalesce(v.VodDir, v.Director),
		Content:  coalesce(v.VodCont, v.Content),
		Remarks:  coalesce(v.VodRem, v.Remarks),
		TypeID:   v.TypeID,
		TypeName: v.TypeName,
		Score:    coalesce(v.VodScore, v.Score),
		Tag:      coalesce(v.VodTag, v.Tag),
		PlayFlag: flag,
		PlayRaw:  raw,
	}
}

// firstNonEmptyDD returns the first <dd> whose trimmed chardata is non-empty,
// per spec §4.A "the first non-empty <dd> wins".
func firstNonEmptyDD(dd []ddXML) (flag, content string) {
	for _, d := range dd {
		c := strings.TrimSpace(d.Content)
		if c != "" {
			return d.Flag, c
		}
	}
	return "", ""
}

func coalesce(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
