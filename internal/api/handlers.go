package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/videocatalog/catalogcore/internal/aggregate"
	"github.com/videocatalog/catalogcore/internal/catalogstore"
	"github.com/videocatalog/catalogcore/internal/logging"
	"github.com/videocatalog/catalogcore/internal/recommend"
)

// Handler wires every read-path component together; New builds one from
// concrete components, each already satisfying the narrow interfaces in
// provider.go.
type Handler struct {
	list        Lister
	detail      Detailer
	search      Searcher
	recommender Recommender
	hits        HitTracker
}

// New builds a Handler.
func New(list Lister, detail Detailer, search Searcher, recommender Recommender, hits HitTracker) *Handler {
	return &Handler{list: list, detail: detail, search: search, recommender: recommender, hits: hits}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// ListVideos implements GET /api/v1/videos (spec §4.J aggregate()).
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	result, err := h.list.Aggregate(r.Context(), aggregate.Params{
		TypeID:         queryInt(r, "type_id", 0),
		SubTypeID:      queryInt(r, "sub_type_id", 0),
		Tag:            q.Get("tag"),
		AreaLike:       q.Get("area"),
		Year:           queryInt(r, "year", 0),
		Sort:           q.Get("sort"),
		Page:           page,
		PageSize:       pageSize,
		IncludeWelfare: q.Get("include_welfare") == "true",
		ClassToken:     q.Get("class"),
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	writePaginated(w, r, result.Videos, Pagination{Page: page, PageSize: pageSize, HasMore: len(result.Videos) >= pageSize})
}

// GetVideo implements GET /api/v1/videos/{id} (spec §4.G get_by_id()),
// recording a hit and, when a viewer query param is present, a watch-history
// row for the collaborative/personalized recommend strategies.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	video, ok, err := h.detail.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "video not found")
		return
	}

	h.hits.Track(r.Context(), id)
	if userID := r.URL.Query().Get("viewer"); userID != "" {
		if err := h.detail.RecordWatch(r.Context(), userID, id); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("video_id", id).Msg("api: record_watch failed")
		}
	}
	writeSuccess(w, r, video)
}

// Search implements GET /api/v1/search (spec §4.L search(keyword, limit)).
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "q is required")
		return
	}
	limit := queryInt(r, "limit", 20)

	results, err := h.search.Search(r.Context(), keyword, limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	writeSuccess(w, r, results)
}

// AdvancedSearch implements GET /api/v1/search/advanced (spec §4.L
// advanced_search).
func (h *Handler) AdvancedSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	results, total, err := h.search.AdvancedSearch(r.Context(), catalogstore.AdvancedSearchParams{
		Keyword:  q.Get("q"),
		TypeID:   queryInt(r, "type_id", 0),
		Year:     queryInt(r, "year", 0),
		Area:     q.Get("area"),
		Actor:    q.Get("actor"),
		Director: q.Get("director"),
		OrderBy:  q.Get("order_by"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	writePaginated(w, r, results, Pagination{Page: page, PageSize: pageSize, Total: total, HasMore: page*pageSize < total})
}

// Suggestions implements GET /api/v1/search/suggestions (spec §4.L
// suggestions(prefix, limit)).
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "prefix is required")
		return
	}
	suggestions, err := h.search.Suggestions(r.Context(), prefix, queryInt(r, "limit", 10))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	writeSuccess(w, r, suggestions)
}

// Recommend implements GET /api/v1/recommend (spec §4.K recommend(request)).
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	strategy := q.Get("strategy")
	if strategy == "" {
		strategy = recommend.StrategyTrending
	}

	resp := h.recommender.Recommend(r.Context(), recommend.Request{
		Strategy: strategy,
		VideoID:  q.Get("video_id"),
		UserID:   q.Get("viewer"),
		TypeID:   queryInt(r, "type_id", 0),
		Limit:    queryInt(r, "limit", 20),
	})
	writeSuccess(w, r, resp)
}

// Trending implements GET /api/v1/trending, a thin alias over Recommend's
// trending strategy for clients that don't want to know the strategy names.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	resp := h.recommender.Recommend(r.Context(), recommend.Request{
		Strategy: recommend.StrategyTrending,
		TypeID:   queryInt(r, "type_id", 0),
		Limit:    queryInt(r, "limit", 10),
	})
	writeSuccess(w, r, resp.Recommendations)
}
