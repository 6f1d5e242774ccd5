package classify

import "regexp"

// typeNameRule is one entry in the ordered type_name priority chain (spec §4.C,
// method 1). Patterns/Excludes are substring checks, not regexes — the upstream
// category strings this matches against are short, hand-authored labels, not free
// text, so substring matching is both sufficient and keeps the chain auditable.
type typeNameRule struct {
	Type     TypeID
	Patterns []string
	Excludes []string
	SubRules []subRule
}

type subRule struct {
	Name     string
	Patterns []string
}

// typeNameRules is deliberately ordered: Trailer/Adult must be checked before
// Movie so labels like "预告片" or "伦理片" aren't captured by Movie's "片" cues;
// ShortDrama before TVSeries so "短剧" isn't captured by TVSeries' "剧" cues;
// Movie carries explicit TVSeries-shaped excludes so "电影"-labelled rows with a
// "连续剧" qualifier fall through to the TVSeries rule instead.
var typeNameRules = []typeNameRule{
	{
		Type:     TypeTrailer,
		Patterns: []string{"预告", "花絮", "先导片"},
	},
	{
		Type:     TypeAdult,
		Patterns: []string{"伦理", "福利", "写真"},
	},
	{
		Type:     TypeShortDrama,
		Patterns: []string{"短剧", "微短剧", "竖屏剧"},
		SubRules: []subRule{
			{Name: "逆袭", Patterns: []string{"逆袭", "重生"}},
			{Name: "甜宠", Patterns: []string{"甜宠", "霸总"}},
			{Name: "复仇", Patterns: []string{"复仇", "虐恋"}},
		},
	},
	{
		Type:     TypeVariety,
		Patterns: []string{"综艺", "脱口秀", "真人秀"},
	},
	{
		Type:     TypeAnime,
		Patterns: []string{"动漫", "动画", "anime"},
		SubRules: []subRule{
			{Name: "日漫", Patterns: []string{"日漫", "日本动画"}},
			{Name: "国漫", Patterns: []string{"国漫", "国产动画"}},
		},
	},
	{
		Type:     TypeMovie,
		Patterns: []string{"电影", "影片", "动作片", "喜剧片", "爱情片", "科幻片", "恐怖片", "剧情片"},
		Excludes: []string{"电视剧", "连续剧", "剧集"},
		SubRules: []subRule{
			{Name: "动作", Patterns: []string{"动作"}},
			{Name: "喜剧", Patterns: []string{"喜剧"}},
			{Name: "爱情", Patterns: []string{"爱情"}},
			{Name: "科幻", Patterns: []string{"科幻"}},
			{Name: "恐怖", Patterns: []string{"恐怖"}},
			{Name: "剧情", Patterns: []string{"剧情"}},
		},
	},
	{
		Type:     TypeTVSeries,
		Patterns: []string{"电视剧", "连续剧", "剧集", "韩剧", "美剧", "台剧", "港剧"},
		SubRules: []subRule{
			{Name: "韩剧", Patterns: []string{"韩剧", "韩国"}},
			{Name: "美剧", Patterns: []string{"美剧", "欧美"}},
			{Name: "台剧", Patterns: []string{"台剧", "台湾"}},
			{Name: "港剧", Patterns: []string{"港剧", "香港"}},
			{Name: "古装", Patterns: []string{"古装"}},
			{Name: "现代", Patterns: []string{"现代", "都市"}},
		},
	},
	{
		Type:     TypeSports,
		Patterns: []string{"体育", "赛事", "足球", "篮球"},
		SubRules: []subRule{
			{Name: "足球", Patterns: []string{"足球"}},
			{Name: "篮球", Patterns: []string{"篮球", "NBA"}},
		},
	},
	{
		Type:     TypeDocumentary,
		Patterns: []string{"纪录片", "记录片"},
	},
}

// episodeMarker / qualityMarker corroborate a type_name match, bumping
// confidence from 0.9 to 0.98 (spec §4.C method 1).
var (
	episodeMarkerRe = regexp.MustCompile(`第\d+[集季]`)
	qualityMarkerRe = regexp.MustCompile(`(高清|蓝光|HD|4K|1080P)`)
)

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if n == "" {
			continue
		}
		if containsFold(haystack, n) {
			return true
		}
	}
	return false
}

// containsFold is a plain substring check; upstream category text is CJK-heavy
// and ASCII fold-casing the whole string would risk corrupting it, so only the
// rare ASCII pattern (e.g. "anime", "NBA") needs case tolerance, handled by
// checking both the original and an uppercased copy.
func containsFold(haystack, needle string) bool {
	return indexOf(haystack, needle) >= 0 || indexOf(toUpperASCII(haystack), toUpperASCII(needle)) >= 0
}

func indexOf(s, substr string) int {
	n := len(substr)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(s); i++ {
		if s[i:i+n] == substr {
			return i
		}
	}
	return -1
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

// matchTypeName runs the ordered type_name chain. Returns ok=false if nothing
// in typeNameRules matched.
func matchTypeName(typeName string) (Result, bool) {
	if typeName == "" {
		return Result{}, false
	}
	for _, rule := range typeNameRules {
		if !containsAny(typeName, rule.Patterns) {
			continue
		}
		if containsAny(typeName, rule.Excludes) {
			continue
		}
		confidence := 0.9
		if episodeMarkerRe.MatchString(typeName) || qualityMarkerRe.MatchString(typeName) {
			confidence = 0.98
		}
		res := Result{
			TypeID:     rule.Type,
			TypeName:   rule.Type.String(),
			Confidence: confidence,
			Method:     MethodTypeName,
		}
		for _, sr := range rule.SubRules {
			if containsAny(typeName, sr.Patterns) {
				res.SubTypeName = sr.Name
				break
			}
		}
		return res, true
	}
	return Result{}, false
}

// contentKeywordRule is one entry in the content-keyword chain (spec §4.C method 2).
type contentKeywordRule struct {
	Type       TypeID
	Patterns   []string
	Confidence float64
}

var contentKeywordRules = []contentKeywordRule{
	{Type: TypeShortDrama, Patterns: []string{"短剧", "竖屏", "小程序剧"}, Confidence: 0.95},
	{Type: TypeVariety, Patterns: []string{"综艺", "脱口秀", "嘉宾"}, Confidence: 0.92},
	{Type: TypeAnime, Patterns: []string{"动漫", "番剧", "声优"}, Confidence: 0.92},
}

var tvEpisodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`第\d+季`),
	regexp.MustCompile(`更新至`),
	regexp.MustCompile(`[Ss]\d+[Ee]\d+`),
}

// matchContentKeywords scans name+content+remarks for cues, then TV episode
// patterns, then a flattened sub-type keyword table.
func matchContentKeywords(text string) (Result, bool) {
	if text == "" {
		return Result{}, false
	}
	for _, rule := range contentKeywordRules {
		if containsAny(text, rule.Patterns) {
			return Result{
				TypeID:     rule.Type,
				TypeName:   rule.Type.String(),
				Confidence: rule.Confidence,
				Method:     MethodContent,
			}, true
		}
	}
	for _, re := range tvEpisodePatterns {
		if re.MatchString(text) {
			return Result{
				TypeID:     TypeTVSeries,
				TypeName:   TypeTVSeries.String(),
				Confidence: 0.88,
				Method:     MethodContent,
			}, true
		}
	}
	for _, rule := range typeNameRules {
		for _, sr := range rule.SubRules {
			if containsAny(text, sr.Patterns) {
				return Result{
					TypeID:      rule.Type,
					TypeName:    rule.Type.String(),
					SubTypeName: sr.Name,
					Confidence:  0.8,
					Method:      MethodContent,
				}, true
			}
		}
	}
	return Result{}, false
}

// typeIDRangeHeuristic is the last-resort fallback inside method 3, used when no
// mapping-table row exists for (sourceID, typeID): 6-12 Movie, 13-19 TV,
// 20-23 Variety, 24-29 Anime, 30-40 ShortDrama.
func typeIDRangeHeuristic(typeID int) (TypeID, bool) {
	switch {
	case typeID >= 6 && typeID <= 12:
		return TypeMovie, true
	case typeID >= 13 && typeID <= 19:
		return TypeTVSeries, true
	case typeID >= 20 && typeID <= 23:
		return TypeVariety, true
	case typeID >= 24 && typeID <= 29:
		return TypeAnime, true
	case typeID >= 30 && typeID <= 40:
		return TypeShortDrama, true
	default:
		return 0, false
	}
}

// knownDirectors / knownActors are small seed lists for method 4. Real
// deployments grow these via the mapping table; these cover the common case of
// a handful of prolific, genre-identifying names.
var knownDirectors = map[string]TypeID{
	"宫崎骏":  TypeAnime,
	"新海诚":  TypeAnime,
	"张艺谋":  TypeMovie,
	"冯小刚":  TypeMovie,
}

var knownActors = map[string]TypeID{
	"沈腾": TypeMovie,
	"贾玲": TypeMovie,
}

func matchActorDirector(actor, director string) (Result, bool) {
	if t, ok := knownDirectors[director]; ok {
		return Result{TypeID: t, TypeName: t.String(), Confidence: 0.8, Method: MethodActor}, true
	}
	if t, ok := knownActors[actor]; ok {
		return Result{TypeID: t, TypeName: t.String(), Confidence: 0.7, Method: MethodActor}, true
	}
	return Result{}, false
}

// matchVideoName is the generic name-only fallback (method 5): cheap cues with
// lower confidence than the dedicated type_name chain gets on the same cues.
func matchVideoName(name string) (Result, bool) {
	if name == "" {
		return Result{}, false
	}
	if containsAny(name, []string{"剧"}) {
		return Result{TypeID: TypeTVSeries, TypeName: TypeTVSeries.String(), Confidence: 0.6, Method: MethodName}, true
	}
	if containsAny(name, []string{"片"}) {
		return Result{TypeID: TypeMovie, TypeName: TypeMovie.String(), Confidence: 0.55, Method: MethodName}, true
	}
	return Result{TypeID: TypeMovie, TypeName: TypeMovie.String(), Confidence: 0.5, Method: MethodName}, true
}
