// Package routing classifies free-text task descriptions into a
// department with a suggested worker. The decision is input metadata
// for task creation; the pipeline itself never depends on it.
package routing

import (
	"strings"

	"github.com/cadencehq/greenlight/task"
)

// Department is one routing target: keyword triggers plus the workers
// who handle matched tasks.
type Department struct {
	Name     string
	Keywords []string
	Agents   []string
	Manager  string
}

// Decision is the routing result for one piece of text.
type Decision struct {
	Department      string        `json:"department"`
	SuggestedWorker string        `json:"suggested_worker"`
	Priority        task.Priority `json:"priority"`
	Confidence      float64       `json:"confidence"`
}

// urgencyWords escalate the suggested priority when present.
var (
	urgentWords = []string{"urgent", "asap", "immediately", "emergency", "critical"}
	highWords   = []string{"important", "high priority", "soon", "deadline"}
)

// Router is a stateless classifier over a fixed department table.
type Router struct {
	departments []Department
}

// NewRouter builds a router from the configured departments. Order
// matters: the first department is the fallback when nothing matches.
func NewRouter(departments []Department) *Router {
	return &Router{departments: departments}
}

// Route scores each department by keyword hits in the text and returns
// the best match. Confidence is the fraction of the winning
// department's keywords found in the text; zero when nothing matched
// and the fallback department was used.
func (r *Router) Route(text string) Decision {
	lower := strings.ToLower(text)

	best := -1
	bestHits := 0
	for i, d := range r.departments {
		hits := 0
		for _, kw := range d.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > bestHits {
			best = i
			bestHits = hits
		}
	}

	dec := Decision{Priority: suggestPriority(lower)}
	if best < 0 {
		if len(r.departments) > 0 {
			dec.Department = r.departments[0].Name
			dec.SuggestedWorker = firstAgent(r.departments[0])
		}
		return dec
	}

	d := r.departments[best]
	dec.Department = d.Name
	dec.SuggestedWorker = firstAgent(d)
	if len(d.Keywords) > 0 {
		dec.Confidence = float64(bestHits) / float64(len(d.Keywords))
	}
	return dec
}

func firstAgent(d Department) string {
	if len(d.Agents) > 0 {
		return d.Agents[0]
	}
	return ""
}

func suggestPriority(lower string) task.Priority {
	for _, w := range urgentWords {
		if strings.Contains(lower, w) {
			return task.PriorityUrgent
		}
	}
	for _, w := range highWords {
		if strings.Contains(lower, w) {
			return task.PriorityHigh
		}
	}
	return task.PriorityMedium
}
