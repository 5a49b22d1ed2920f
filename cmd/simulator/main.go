// Command simulator posts a synthetic meter reading to the usage endpoint every interval.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SmartEnergy/internal/domain/models"
	"SmartEnergy/internal/services/meter"
	xhttp "SmartEnergy/pkg/http"
	applogger "SmartEnergy/pkg/logger"
)

const defaultEndpoint = "http://localhost:5000/usage"

func main() {
	interval := flag.Duration("interval", 2*time.Second, "time between readings")
	flag.Parse()

	endpoint := os.Getenv("ENDPOINT")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &poster{
		client:   xhttp.NewClient(xhttp.WithTimeout(5 * time.Second)),
		sim:      meter.NewSimulator(meter.WithRange(100, 600)),
		endpoint: endpoint,
		logger:   l,
	}
	l.Info("simulator started", applogger.String("endpoint", endpoint), applogger.Duration("interval", *interval))
	p.run(ctx, *interval)
}

type poster struct {
	client   *xhttp.Client
	sim      *meter.Simulator
	endpoint string
	logger   *applogger.Logger
}

func (p *poster) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.post(ctx)
		}
	}
}

func (p *poster) post(ctx context.Context) error {
	r := p.sim.Next()
	payload := models.Reading{Time: r.Time, Power: r.Power}

	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: http.MethodPost,
		URL:    p.endpoint,
		Body:   payload,
	}, nil)
	if err != nil {
		p.logger.Error("post error", applogger.Error(err))
		return err
	}
	p.logger.Info("posted", applogger.String("time", payload.Time), applogger.Float64("power", payload.Power))
	return nil
}
