package gateway

import (
	"net/http"

	"github.com/sendrelay/smsgw/internal/util"
)

// RouteDocs is the response body of the route documentation endpoint.
type RouteDocs struct {
	// Count is the number of registered routes.
	Count int `json:"count"`

	// Routes lists every registered route, sorted by pattern.
	Routes []RouteDoc `json:"routes"`
}

// RouteDoc documents a single registered route.
type RouteDoc struct {
	Method              string   `json:"method"`
	Pattern             string   `json:"pattern"`
	RequiredPermissions []string `json:"requiredPermissions,omitempty"`
	ParamNames          []string `json:"paramNames,omitempty"`
	RateLimit           int      `json:"rateLimit,omitempty"`
}

// DocsHandler serves the registered route listing as JSON.
func (h *Handler) DocsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			util.WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only GET is supported")
			return
		}

		infos := h.gateway.Table().Mappings()

		docs := RouteDocs{
			Count:  len(infos),
			Routes: make([]RouteDoc, 0, len(infos)),
		}
		for _, info := range infos {
			docs.Routes = append(docs.Routes, RouteDoc{
				Method:              info.Method,
				Pattern:             info.Pattern,
				RequiredPermissions: info.RequiredPermissions,
				ParamNames:          info.ParamNames,
				RateLimit:           info.RateLimit,
			})
		}

		util.WriteJSON(w, http.StatusOK, docs)
	}
}
