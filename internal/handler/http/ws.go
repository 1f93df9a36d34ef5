package http

import (
	"net/http"
	"strings"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/infra/push"
)

// WSHandler upgrades /ws/articles connections and hands them to the
// push hub with the filter parsed from the query string.
type WSHandler struct {
	Hub *push.Hub
}

func (h WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Hub.Serve(w, r, filterFromQuery(r))
}

// filterFromQuery maps query parameters onto the push filter. Multi
// valued fields accept comma-separated lists.
func filterFromQuery(r *http.Request) entity.Filter {
	q := r.URL.Query()
	f := entity.Filter{
		SourceIDs: splitList(q.Get("source_id")),
		Topics:    splitList(q.Get("topic")),
		Regions:   splitList(q.Get("region")),
		Languages: splitList(q.Get("language")),
	}
	for _, raw := range splitList(q.Get("transport_mode")) {
		f.TransportModes = append(f.TransportModes, entity.TransportMode(raw))
	}
	if raw := q.Get("urgency_min"); raw != "" {
		f.UrgencyMin = entity.Urgency(raw)
	}
	return f
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
