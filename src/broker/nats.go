package broker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const subjectPrefix = "bubt.live."

// NatsBroker fans live events out to every instance over NATS. Each
// instance subscribes to all live subjects and delivers to the channels it
// holds, so a user connected to any instance receives events pushed from
// any other.
type NatsBroker struct {
	nc    *nats.Conn
	local *LocalBroker
	sub   *nats.Subscription
}

type wireEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

func NewNatsBroker(nc *nats.Conn) (*NatsBroker, error) {
	b := &NatsBroker{nc: nc, local: NewLocalBroker()}
	sub, err := nc.Subscribe(subjectPrefix+"*", b.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe live events: %w", err)
	}
	b.sub = sub
	return b, nil
}

func subjectFor(identity string) string {
	return subjectPrefix + base64.RawURLEncoding.EncodeToString([]byte(identity))
}

func identityFrom(subject string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(subject, subjectPrefix))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (b *NatsBroker) Connect(identity string, ch Channel) {
	b.local.Connect(identity, ch)
}

func (b *NatsBroker) Disconnect(identity string, ch Channel) {
	b.local.Disconnect(identity, ch)
}

func (b *NatsBroker) Push(ctx context.Context, identity string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to encode live event", "event", ev.Name, "error", err)
		return
	}

	msg := &nats.Msg{
		Subject: subjectFor(identity),
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	if err := b.nc.PublishMsg(msg); err != nil {
		slog.Warn("Failed to publish live event", "user_id", identity, "event", ev.Name, "error", err)
	}
}

func (b *NatsBroker) handle(msg *nats.Msg) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))
	ctx, span := otel.Tracer("bubtconnect/broker").Start(ctx, "deliver_live_event", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	identity, err := identityFrom(msg.Subject)
	if err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid live subject", "subject", msg.Subject, "error", err)
		return
	}

	var ev wireEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid live event", "subject", msg.Subject, "error", err)
		return
	}

	// Strings go back out unquoted, everything else stays raw JSON.
	var data any = ev.Data
	var s string
	if err := json.Unmarshal(ev.Data, &s); err == nil {
		data = s
	}
	b.local.Push(ctx, identity, Event{Name: ev.Name, Data: data})
}

// Close stops receiving live events for this instance.
func (b *NatsBroker) Close() error {
	return b.sub.Unsubscribe()
}
