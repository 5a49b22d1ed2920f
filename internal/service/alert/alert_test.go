package alert

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"SmartEnergy/internal/domain/models"
	domrepo "SmartEnergy/internal/domain/repository"
	xhttp "SmartEnergy/pkg/http"
	applogger "SmartEnergy/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeMetrics struct {
	mu     sync.Mutex
	alerts map[string][]bool
	errs   []string
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{alerts: map[string][]bool{}} }

func (m *fakeMetrics) RecordReading(string, float64, int) {}
func (m *fakeMetrics) RecordAnomaly(string) {}
func (m *fakeMetrics) RecordLatency(string, float64) {}
func (m *fakeMetrics) RecordAlert(channel string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[channel] = append(m.alerts[channel], ok)
}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, kind)
}

type fakeChannel struct {
	name string
	err  error

	mu   sync.Mutex
	got  []models.Alert
	wait chan struct{}
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Notify(ctx context.Context, a models.Alert) error {
	if c.wait != nil {
		select {
		case <-c.wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, a)
	return c.err
}

func (c *fakeChannel) alerts() []models.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Alert(nil), c.got...)
}

type staticResolver struct {
	contact models.Contact
	err     error
}

func (r staticResolver) Resolve(context.Context) (models.Contact, error) {
	return r.contact, r.err
}

var owner = models.Contact{Name: "Asha", Email: "asha@example.com", Phone: "+919800000000"}

func TestFanoutDeliversToEveryChannel(t *testing.T) {
	m := newFakeMetrics()
	email := &fakeChannel{name: "email"}
	sms := &fakeChannel{name: "sms", err: errors.New("twilio down")}
	f := NewFanout(applogger.Nop(), m, time.Second, email, sms)

	err := f.Deliver(context.Background(), models.Alert{ID: "a1", Reason: models.ReasonThreshold, Power: 900, Contact: owner})
	require.NoError(t, err, "one successful channel is enough")

	assert.Len(t, email.alerts(), 1)
	assert.Len(t, sms.alerts(), 1)
	assert.Equal(t, []bool{true}, m.alerts["email"])
	assert.Equal(t, []bool{false}, m.alerts["sms"])
	assert.Equal(t, []string{"email", "sms"}, f.Channels())
}

func TestFanoutFailsWhenAllChannelsFail(t *testing.T) {
	f := NewFanout(applogger.Nop(), newFakeMetrics(), time.Second,
		&fakeChannel{name: "email", err: errors.New("smtp")},
		&fakeChannel{name: "sms", err: ErrNoRecipient},
	)
	err := f.Deliver(context.Background(), models.Alert{ID: "a2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp")
}

func TestFanoutSkipsChannelsWithoutRecipient(t *testing.T) {
	m := newFakeMetrics()
	f := NewFanout(applogger.Nop(), m, time.Second, &fakeChannel{name: "sms", err: ErrNoRecipient})
	assert.NoError(t, f.Deliver(context.Background(), models.Alert{ID: "a3"}))
	assert.Empty(t, m.alerts)
}

func TestFanoutAppliesPerChannelTimeout(t *testing.T) {
	slow := &fakeChannel{name: "email", wait: make(chan struct{})}
	f := NewFanout(applogger.Nop(), newFakeMetrics(), 20*time.Millisecond, slow)

	err := f.Deliver(context.Background(), models.Alert{ID: "a4", Contact: owner})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcherDeliversWithResolvedContact(t *testing.T) {
	ch := &fakeChannel{name: "email"}
	m := newFakeMetrics()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := NewDispatcher(applogger.Nop(), m, staticResolver{contact: owner},
		NewFanout(applogger.Nop(), m, time.Second, ch),
		WithWorkers(1), WithClock(func() time.Time { return fixed }))

	assert.True(t, d.Dispatch(models.ReasonSpike, 640))
	require.NoError(t, d.Close(context.Background()))

	got := ch.alerts()
	require.Len(t, got, 1)
	assert.Equal(t, models.ReasonSpike, got[0].Reason)
	assert.Equal(t, 640.0, got[0].Power)
	assert.Equal(t, owner, got[0].Contact)
	assert.Equal(t, fixed, got[0].CreatedAt)
	assert.NotEmpty(t, got[0].ID)
}

func TestDispatcherWithoutRecipientStillDelivers(t *testing.T) {
	ch := &fakeChannel{name: "kafka"}
	d := NewDispatcher(applogger.Nop(), newFakeMetrics(), staticResolver{err: domrepo.ErrNotFound},
		NewFanout(applogger.Nop(), newFakeMetrics(), time.Second, ch))

	d.Dispatch(models.ReasonThreshold, 800)
	require.NoError(t, d.Close(context.Background()))

	got := ch.alerts()
	require.Len(t, got, 1)
	assert.True(t, got[0].Contact.Empty())
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	ch := &fakeChannel{name: "email", wait: block}
	m := newFakeMetrics()
	d := NewDispatcher(applogger.Nop(), m, staticResolver{contact: owner},
		NewFanout(applogger.Nop(), m, time.Minute, ch),
		WithWorkers(1), WithQueueSize(1))

	// the first alert occupies the worker, the second fills the queue
	require.True(t, d.Dispatch("first", 1))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.True(t, d.Dispatch("second", 2))

	assert.False(t, d.Dispatch("third", 3))
	assert.Contains(t, m.errs, "alert_queue_full")

	close(block)
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, ch.alerts(), 2)
	assert.False(t, d.Dispatch("late", 4), "closed dispatcher rejects alerts")
}

func TestDispatchDoesNotBlockOnSlowChannels(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	d := NewDispatcher(applogger.Nop(), newFakeMetrics(), staticResolver{contact: owner},
		NewFanout(applogger.Nop(), newFakeMetrics(), time.Minute, &fakeChannel{name: "email", wait: block}),
		WithWorkers(1), WithQueueSize(4))

	start := time.Now()
	for i := 0; i < 10; i++ {
		d.Dispatch("spike", 700)
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

type fakeQueue struct {
	msgType string
	payload interface{}
	err     error
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.msgType, q.payload = msgType, payload
	return q.err
}

func TestRedisRelayAndAlertJob(t *testing.T) {
	q := &fakeQueue{}
	relay := NewRedisRelay(q)
	a := models.Alert{ID: "a5", Reason: models.ReasonSharpRise, Power: 480, Contact: owner}
	require.NoError(t, relay.Deliver(context.Background(), a))
	assert.Equal(t, JobTypeDeliver, q.msgType)

	ch := &fakeChannel{name: "email"}
	job := NewAlertJob(NewFanout(applogger.Nop(), newFakeMetrics(), time.Second, ch))
	assert.Equal(t, JobTypeDeliver, job.Type())
	require.NoError(t, job.Handle(context.Background(), []byte(`{"id":"a5","reason":"Sharp increase in usage","power":480,"contact":{"email":"asha@example.com"}}`)))
	require.Len(t, ch.alerts(), 1)
	assert.Equal(t, "asha@example.com", ch.alerts()[0].Contact.Email)

	assert.Error(t, job.Handle(context.Background(), []byte(`not json`)))

	q.err = errors.New("redis down")
	assert.Error(t, relay.Deliver(context.Background(), a))
}

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestEmailChannel(t *testing.T) {
	mailer := &fakeMailer{}
	ch := &EmailChannel{sender: mailer, from: "alerts@example.com"}

	assert.ErrorIs(t, ch.Notify(context.Background(), models.Alert{}), ErrNoRecipient)

	require.NoError(t, ch.Notify(context.Background(), models.Alert{Reason: models.ReasonSpike, Power: 612.5, Contact: owner}))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"asha@example.com"}, mailer.sent[0].GetHeader("To"))
	subject := mailer.sent[0].GetHeader("Subject")
	require.Len(t, subject, 1)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject[0])
	require.NoError(t, err)
	assert.Equal(t, EmailSubject, decoded)
	from := mailer.sent[0].GetHeader("From")
	require.Len(t, from, 1)
	assert.Contains(t, from[0], "<alerts@example.com>")

	var body bytes.Buffer
	_, err = mailer.sent[0].WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "Reason: "+models.ReasonSpike)
	assert.Contains(t, body.String(), "Power: 612.5W")

	mailer.err = errors.New("auth failed")
	assert.Error(t, ch.Notify(context.Background(), models.Alert{Contact: owner}))
}

func TestAlertBodies(t *testing.T) {
	a := models.Alert{Reason: models.ReasonThreshold, Power: 999}
	assert.Equal(t, "Anomaly Detected!\nReason: High usage threshold exceeded\nPower: 999W", emailBody(a))
	assert.Equal(t, "⚠️ Energy Alert: High usage threshold exceeded | Power: 999W", smsBody(a))
}

func TestSMSChannelPostsTwilioForm(t *testing.T) {
	var (
		path, user, pass string
		form             map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, pass, _ = r.BasicAuth()
		assert.NoError(t, r.ParseForm())
		form = map[string]string{"To": r.PostForm.Get("To"), "From": r.PostForm.Get("From"), "Body": r.PostForm.Get("Body")}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	ch := NewSMSChannel(xhttp.NewClient(), srv.URL+"/", "AC123", "secret", "+15550001111")
	require.NoError(t, ch.Notify(context.Background(), models.Alert{Reason: models.ReasonSpike, Power: 650, Contact: owner}))

	assert.Equal(t, "/Accounts/AC123/Messages.json", path)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, owner.Phone, form["To"])
	assert.Equal(t, "+15550001111", form["From"])
	assert.Equal(t, "⚠️ Energy Alert: Sudden spike detected | Power: 650W", form["Body"])

	assert.ErrorIs(t, ch.Notify(context.Background(), models.Alert{}), ErrNoRecipient)
}

func TestSMSChannelReportsProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid number"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	ch := NewSMSChannel(xhttp.NewClient(), srv.URL, "AC123", "secret", "+15550001111")
	err := ch.Notify(context.Background(), models.Alert{Contact: owner})
	var se *xhttp.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

type fakePublisher struct {
	topic   string
	payload interface{}
}

func (p *fakePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.topic, p.payload = topic, payload
	return nil
}

func TestKafkaChannel(t *testing.T) {
	p := &fakePublisher{}
	ch := NewKafkaChannel(p, "energy.alerts")
	a := models.Alert{ID: "a6", Reason: models.ReasonSpike}
	require.NoError(t, ch.Notify(context.Background(), a))
	assert.Equal(t, "energy.alerts", p.topic)
	assert.Equal(t, a, p.payload)
}
