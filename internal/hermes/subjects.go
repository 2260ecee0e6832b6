package hermes

const (
	SubjectRecommendRequest = "concierge.recommend.request"

	StreamName = "CONCIERGE_EVENTS"
	// Outcomes are held briefly so a requester that subscribes late can
	// still collect its answer. Trace events are core NATS only.
	StreamMaxAge = "15m"
)

// StreamSubjects lists the subjects retained by the JetStream stream.
var StreamSubjects = []string{
	"concierge.query.*.completed",
	"concierge.query.*.failed",
}

func SubjectQueryTrace(queryID string) string     { return "concierge.query." + queryID + ".trace" }
func SubjectQueryCompleted(queryID string) string { return "concierge.query." + queryID + ".completed" }
func SubjectQueryFailed(queryID string) string    { return "concierge.query." + queryID + ".failed" }
