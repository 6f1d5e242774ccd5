package parser

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// parseJSON accepts the CMS JSON dialect: a top-level object with
// {code,msg,page,pagecount,limit,total,list:[...]}. gjson supplies tolerant,
// no-schema field access so each item can be read under either naming convention
// (vod_name vs name) without two near-duplicate struct definitions.
func parseJSON(body []byte) (*ParsedVideoList, error) {
	if !gjson.ValidBytes(body) {
		return nil, &ParseError{Reason: "invalid JSON"}
	}
	root := gjson.ParseBytes(body)

	listField := root.Get("list")
	if !listField.Exists() {
		// Some upstreams return a bare JSON array of videos with no envelope.
		if root.IsArray() {
			listField = root
		} else {
			return nil, fmt.Errorf("%w: no top-level \"list\" field", errUnrecognizedShape)
		}
	}
	if !listField.IsArray() {
		return nil, &ParseError{Reason: "\"list\" field is not an array"}
	}

	out := &ParsedVideoList{
		Code:      int(root.Get("code").Int()),
		Msg:       root.Get("msg").String(),
		Page:      firstInt(root, "page", "pg"),
		PageCount: firstInt(root, "pagecount", "page_count"),
		Limit:     int(root.Get("limit").Int()),
		Total:     int(root.Get("total").Int()),
	}

	listField.ForEach(func(_, item gjson.Result) bool {
		out.List = append(out.List, parseJSONVideo(item))
		return true
	})
	return out, nil
}

func parseJSONVideo(item gjson.Result) ParsedVideo {
	return ParsedVideo{
		ID:       firstString(item, "vod_id", "id"),
		Name:     firstString(item, "vod_name", "name"),
		Pic:      firstString(item, "vod_pic", "pic"),
		Area:     firstString(item, "vod_area", "area"),
		Year:     firstString(item, "vod_year", "year"),
		Actor:    firstString(item, "vod_actor", "actor"),
		Director: firstString(item, "vod_director", "director"),
		Content:  firstString(item, "vod_content", "content"),
		Remarks:  firstString(item, "vod_remarks", "remarks"),
		TypeID:   firstString(item, "type_id", "typeid"),
		TypeName: firstString(item, "type_name", "typename"),
		Score:    firstString(item, "vod_score", "score"),
		Tag:      firstString(item, "vod_tag", "tag"),
		PlayFlag: "",
		PlayRaw:  firstString(item, "vod_play_url", "play_url"),
	}
}

// firstString returns the first non-empty string value among the named fields.
func firstString(item gjson.Result, names ...string) string {
	for _, n := range names {
		if v := item.Get(n); v.Exists() {
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstInt(item gjson.Result, names ...string) int {
	for _, n := range names {
		if v := item.Get(n); v.Exists() {
			return int(v.Int())
		}
	}
	return 0
}
