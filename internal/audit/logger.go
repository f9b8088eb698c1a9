package audit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ticketless/admin-console/middleware"
)

// Event is one administrative action taken through the console.
type Event struct {
	Action     string    `json:"action"`
	Resource   string    `json:"resource,omitempty"`
	RecordID   int64     `json:"record_id,omitempty"`
	Fields     []string  `json:"fields,omitempty"`
	ActorID    int64     `json:"actor_id,omitempty"`
	ActorEmail string    `json:"actor_email,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	At         time.Time `json:"at"`
}

// RoutingKey is admin.<resource>.<action>, or admin.<action> for session events.
func (e Event) RoutingKey() string {
	if e.Resource == "" {
		return "admin." + e.Action
	}
	return "admin." + strings.ReplaceAll(e.Resource, "/", ".") + "." + e.Action
}

// Logger provides structured audit logging for console actions and forwards
// each event to a Publisher.
type Logger struct {
	log zerolog.Logger
	pub Publisher
	now func() time.Time
}

// New creates an audit logger. A nil publisher only logs.
func New(log zerolog.Logger, pub Publisher) *Logger {
	if pub == nil {
		pub = Nop{}
	}
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
		pub: pub,
		now: time.Now,
	}
}

// Record logs e and publishes it. Publishing failures are logged, never returned.
func (l *Logger) Record(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = l.now().UTC()
	}
	if e.RequestID == "" {
		e.RequestID = middleware.GetRequestID(ctx)
	}

	l.log.Info().
		Str("action", e.Action).
		Str("resource", e.Resource).
		Int64("record_id", e.RecordID).
		Strs("fields", e.Fields).
		Int64("actor_id", e.ActorID).
		Str("actor_email", maskEmail(e.ActorEmail)).
		Str("request_id", e.RequestID).
		Msg("Console record changed")

	if err := l.pub.Publish(ctx, e); err != nil {
		l.log.Warn().Err(err).Str("routing_key", e.RoutingKey()).Str("request_id", e.RequestID).Msg("audit publish failed")
	}
}

// LoginSuccess logs a successful console login
func (l *Logger) LoginSuccess(ctx context.Context, userID int64, email, ip string) {
	l.log.Info().
		Str("action", "login_success").
		Str("user_id", strconv.FormatInt(userID, 10)).
		Str("email", maskEmail(email)).
		Str("ip", ip).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("Admin logged in successfully")
	l.publish(ctx, Event{Action: "login", ActorID: userID, ActorEmail: email})
}

// LoginFailed logs a failed login attempt
func (l *Logger) LoginFailed(ctx context.Context, email, ip, reason string) {
	l.log.Warn().
		Str("action", "login_failed").
		Str("email", maskEmail(email)).
		Str("ip", ip).
		Str("reason", reason).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("Login attempt failed")
}

func (l *Logger) Logout(ctx context.Context, userID int64) {
	l.log.Info().
		Str("action", "logout").
		Str("user_id", strconv.FormatInt(userID, 10)).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("Admin logged out")
	l.publish(ctx, Event{Action: "logout", ActorID: userID})
}

// PasswordChanged logs a password change made from the account view
func (l *Logger) PasswordChanged(ctx context.Context, userID int64) {
	l.log.Info().
		Str("action", "password_changed").
		Str("user_id", strconv.FormatInt(userID, 10)).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("Admin password changed")
	l.publish(ctx, Event{Action: "password_changed", Resource: "users", RecordID: userID, ActorID: userID})
}

// MemberAdded logs an organization membership grant
func (l *Logger) MemberAdded(ctx context.Context, organizationID, actorID int64, email, role string) {
	l.log.Warn().
		Str("action", "member_added").
		Int64("organization_id", organizationID).
		Int64("actor_user_id", actorID).
		Str("email", maskEmail(email)).
		Str("role", role).
		Str("request_id", middleware.GetRequestID(ctx)).
		Msg("Organization member added")
	l.publish(ctx, Event{Action: "member_added", Resource: "organizations", RecordID: organizationID, ActorID: actorID, Fields: []string{"members"}})
}

func (l *Logger) publish(ctx context.Context, e Event) {
	e.At = l.now().UTC()
	e.RequestID = middleware.GetRequestID(ctx)
	if err := l.pub.Publish(ctx, e); err != nil {
		l.log.Warn().Err(err).Str("routing_key", e.RoutingKey()).Msg("audit publish failed")
	}
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
