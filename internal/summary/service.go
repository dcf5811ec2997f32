package summary

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ghdigest/server/internal/config"
	"ghdigest/server/internal/mcp"
)

// Conn is a live connection to a backend tool server.
type Conn interface {
	ToolCaller
	Close() error
}

// Dialer opens a connection to a backend tool server. Each invocation
// dials its own pair of backends; the two are never held open at once.
type Dialer func(ctx context.Context) (Conn, error)

// Service sequences window computation, activity gathering, rendering and
// the outbound Slack post.
type Service struct {
	github    Dialer
	slack     Dialer
	channelID string
	tracer    trace.Tracer
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		github:    dialer(cfg.GitHubServer()),
		slack:     dialer(cfg.SlackServer()),
		channelID: cfg.SlackChannelID,
		tracer:    otel.Tracer("ghdigest/server/internal/summary"),
	}
}

func dialer(spec mcp.ServerSpec) Dialer {
	return func(ctx context.Context) (Conn, error) {
		return mcp.Dial(ctx, spec)
	}
}

// SendDailySummary gathers the user's current-UTC-day activity, renders the
// summary and posts it to the configured channel. A gather failure aborts
// the invocation; a posting failure is logged only and the success string
// is still returned, so monitoring that must catch missed posts has to
// watch the logs rather than the return value.
func (s *Service) SendDailySummary(ctx context.Context, user string) (string, error) {
	window := currentDayWindow()

	report, err := s.gather(ctx, user, window)
	if err != nil {
		return "", err
	}

	text := renderSummary(user, window, report)
	s.post(ctx, text)
	return "Summary sent successfully", nil
}

// ToolFunc adapts the service to the MCP handler registration. The user
// argument has already passed schema validation.
func (s *Service) ToolFunc() mcp.ToolFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		user, _ := args["user"].(string)
		return s.SendDailySummary(ctx, user)
	}
}

func (s *Service) gather(ctx context.Context, user string, window DayWindow) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "gather_activity")
	defer span.End()

	conn, err := s.github(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "dial github backend")
	}
	defer closeConn(conn, "github")

	return gatherActivity(ctx, conn, user, window)
}

func (s *Service) post(ctx context.Context, text string) {
	ctx, span := s.tracer.Start(ctx, "post_summary")
	defer span.End()

	conn, err := s.slack(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to send Slack message")
		return
	}
	defer closeConn(conn, "slack")

	res, err := conn.CallTool(ctx, "slack_post_message", map[string]any{
		"channel_id": s.channelID,
		"text":       text,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to send Slack message")
		return
	}
	if res.IsError {
		log.Error().Msg("failed to send Slack message: tool returned an error result")
		return
	}
	log.Info().Msg("summary sent successfully")
}

func closeConn(conn Conn, name string) {
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Str("backend", name).Msg("backend connection did not close cleanly")
	}
}
