// Package sink forwards dispatched sessions to external HTTP endpoints.
// A standalone adapter process has no embedding framework to hand sessions
// to, so the sink plays that role: every session is POSTed, signed, to the
// configured endpoints.
package sink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arkbridge/adapter-whatsapp-web/internal/universal"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/env"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/log"
)

// Endpoint is one delivery target. An empty Events list receives every
// session type.
type Endpoint struct {
	URL    string
	Secret string
	Events []string
}

type Engine struct {
	endpoints  []Endpoint
	httpClient *http.Client
	queue      chan *deliveryTask
	workers    int
	retryLimit int
	logger     *logrus.Entry
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

type deliveryTask struct {
	endpoint Endpoint
	session  *universal.Session
}

// NewEngine starts the delivery workers. A nil engine is returned when no
// endpoints are configured; a nil engine accepts Dispatch and Shutdown as
// no-ops.
func NewEngine(endpoints []Endpoint) *Engine {
	if len(endpoints) == 0 {
		return nil
	}

	workers := env.GetEnvIntOrDefault("SESSION_SINK_WORKERS", 4)
	if workers <= 0 {
		workers = 4
	}
	retryLimit := env.GetEnvIntOrDefault("SESSION_SINK_RETRY_LIMIT", 3)
	if retryLimit <= 0 {
		retryLimit = 3
	}

	ctx, cancel := context.WithCancel(context.Background())
	engine := &Engine{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		queue:      make(chan *deliveryTask, 1000),
		workers:    workers,
		retryLimit: retryLimit,
		logger:     log.Print("sink"),
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < workers; i++ {
		engine.wg.Add(1)
		go engine.worker()
	}
	return engine
}

// EndpointsFromEnv reads the delivery targets from SESSION_SINK_URLS
// (comma separated) and SESSION_SINK_SECRET.
func EndpointsFromEnv() []Endpoint {
	urls := env.GetEnvStringOrDefault("SESSION_SINK_URLS", "")
	if strings.TrimSpace(urls) == "" {
		return nil
	}
	secret := env.GetEnvStringOrDefault("SESSION_SINK_SECRET", "")

	var endpoints []Endpoint
	for _, raw := range strings.Split(urls, ",") {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		endpoints = append(endpoints, Endpoint{URL: url, Secret: secret})
	}
	return endpoints
}

// Shutdown stops the workers and waits for in-flight deliveries. The queue
// stays open so a Dispatch racing the shutdown cannot panic; tasks enqueued
// after the workers exit are simply never delivered.
func (e *Engine) Shutdown() {
	if e == nil {
		return
	}
	e.cancel()
	e.wg.Wait()
}

// Dispatch enqueues a session for delivery to every matching endpoint.
// A full queue drops the delivery rather than blocking the event stream.
func (e *Engine) Dispatch(session *universal.Session) {
	if e == nil || session == nil {
		return
	}
	for _, endpoint := range e.endpoints {
		if !shouldDeliver(endpoint, session.Type) {
			continue
		}
		select {
		case e.queue <- &deliveryTask{endpoint: endpoint, session: session}:
		default:
			e.logger.WithField("type", session.Type).Warn("Delivery queue is full, dropping session")
		}
	}
}

func shouldDeliver(endpoint Endpoint, sessionType string) bool {
	if len(endpoint.Events) == 0 {
		return true
	}
	for _, event := range endpoint.Events {
		if event == sessionType {
			return true
		}
	}
	return false
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case task := <-e.queue:
			e.deliver(task)
		}
	}
}

func (e *Engine) deliver(task *deliveryTask) {
	payload, err := json.Marshal(task.session)
	if err != nil {
		e.logger.WithError(err).Error("Failed to encode session")
		return
	}
	signature := signPayload(payload, task.endpoint.Secret)

	var lastErr error
	for attempt := 1; attempt <= e.retryLimit; attempt++ {
		req, err := http.NewRequestWithContext(e.ctx, http.MethodPost, task.endpoint.URL, bytes.NewReader(payload))
		if err != nil {
			lastErr = err
			break
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Session-Signature", signature)
		req.Header.Set("X-Session-Type", task.session.Type)
		req.Header.Set("User-Agent", "adapter-whatsapp-web/1.0")

		resp, err := e.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < e.retryLimit {
				time.Sleep(time.Duration(attempt*2) * time.Second)
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return
		}
		lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		if attempt < e.retryLimit {
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}

	e.logger.WithError(lastErr).WithField("url", task.endpoint.URL).Error("Session delivery failed")
}

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
