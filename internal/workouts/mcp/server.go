package mcp

import (
	"crypto/subtle"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

const SecretHeader = "X-MCP-Secret"

// NewServer builds an MCP server with the workout tools: exercises, volume table,
// exercise series, exercise stats and exercise summary.
// Mounted by the main backend at /mcp, and served over stdio by cmd/liftlog_mcp.
func NewServer(analyzer workoutsAnalyzer, version string) *mcp.Server {
	h := NewHandler(analyzer)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "liftlog",
		Version: version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_exercises",
		Description: "Returns the names of all exercises ever logged, in Japanese collation order. Use to find the exact exercise name for the other tools.",
	}, h.ListExercisesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_volume_table",
		Description: "Returns the total volume (lb) per date and exercise, newest date first, with the sets behind each entry. Optional: from_date, to_date (YYYY-MM-DD), exercise. Use to see what was trained and how much.",
	}, h.GetVolumeTableTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_exercise_series",
		Description: "Returns the daily volume and max load of one exercise, oldest date first. Arg: exercise. Use to chart or judge progression.",
	}, h.GetExerciseSeriesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_exercise_stats",
		Description: "Returns one summary per exercise: last date, max daily volume, max load and number of workout days.",
	}, h.GetExerciseStatsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_exercise_summary",
		Description: "Returns the best results so far (max daily volume, max load) of one exercise. Arg: exercise.",
	}, h.GetExerciseSummaryTool())

	return s
}

// NewHTTPHandler serves the MCP server over streamable HTTP, for clients sending the shared secret.
func NewHTTPHandler(server *mcp.Server, secret string) http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
	return RequireSecret(secret)(streamable)
}

// RequireSecret rejects requests without the X-MCP-Secret header matching secret.
// An empty secret rejects everything.
func RequireSecret(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			given := r.Header.Get(SecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
				log.Tracef("[mcp] unauthorized request => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
