// Package receiver implements OTLP log ingestion over HTTP and gRPC,
// feeding every log record's body into the named detector identified by the
// record's service.name resource attribute.
package receiver

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/fidde/patterntrie/internal/anomaly"
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

var verboseLogging = strings.ToLower(os.Getenv("VERBOSE_LOGGING")) == "true"

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func decompressGzip(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// serviceNameOf returns the resource's service.name attribute, falling back
// to host.name and finally "unknown" if neither is present.
func serviceNameOf(attrs []*commonpb.KeyValue) string {
	var hostName string
	for _, attr := range attrs {
		switch attr.Key {
		case "service.name":
			if v := attr.GetValue().GetStringValue(); v != "" {
				return v
			}
		case "host.name":
			hostName = attr.GetValue().GetStringValue()
		}
	}
	if hostName != "" {
		return hostName
	}
	return "unknown"
}

// EventSink receives anomaly events produced while ingesting logs in detect
// mode. A nil sink silently drops events.
type EventSink interface {
	StoreEvent(ctx context.Context, ev *anomaly.Event) error
}

// HTTPReceiver handles OTLP HTTP log export requests.
type HTTPReceiver struct {
	detectors *anomaly.Registry
	sink      EventSink
	server    *http.Server
}

// NewHTTPReceiver creates a new HTTP receiver bound to addr.
func NewHTTPReceiver(addr string, detectors *anomaly.Registry, sink EventSink) *HTTPReceiver {
	r := &HTTPReceiver{
		detectors: detectors,
		sink:      sink,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/logs", r.handleLogs)
	mux.HandleFunc("/health", r.handleHealth)

	r.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return r
}

// Start starts the HTTP server.
func (r *HTTPReceiver) Start() error {
	return r.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (r *HTTPReceiver) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

// handleLogs handles OTLP logs export requests.
func (r *HTTPReceiver) handleLogs(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := req.Context()

	reader := req.Body
	if req.Header.Get("Content-Encoding") == "gzip" {
		var err error
		reader, err = decompressGzip(req.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to decompress: %v", err), http.StatusBadRequest)
			return
		}
		defer reader.Close()
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read body: %v", err), http.StatusBadRequest)
		return
	}
	defer req.Body.Close()

	var exportReq collogspb.ExportLogsServiceRequest
	if err := proto.Unmarshal(body, &exportReq); err != nil {
		unmarshaler := protojson.UnmarshalOptions{DiscardUnknown: true}
		if jsonErr := unmarshaler.Unmarshal(body, &exportReq); jsonErr != nil {
			log.Printf("Failed to parse logs as both protobuf and JSON\n")
			log.Printf("Protobuf error: %v\n", err)
			log.Printf("JSON error: %v\n", jsonErr)
			log.Printf("Body preview: %s\n", string(body[:min(len(body), 100)]))
			http.Error(w, fmt.Sprintf("Failed to parse request: protobuf error: %v, json error: %v", err, jsonErr), http.StatusBadRequest)
			return
		}
		if verboseLogging {
			log.Println("Parsed logs as JSON")
		}
	} else if verboseLogging {
		log.Println("Parsed logs as protobuf")
	}

	if err := ingestExportRequest(ctx, r.detectors, r.sink, &exportReq); err != nil {
		log.Printf("Log ingestion error: %v\n", err)
		http.Error(w, fmt.Sprintf("Failed to ingest logs: %v", err), http.StatusInternalServerError)
		return
	}

	resp := &collogspb.ExportLogsServiceResponse{}
	r.writeResponse(w, resp)
}

// handleHealth handles health check requests.
func (r *HTTPReceiver) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeResponse writes a protobuf response. OTLP always uses protobuf for
// responses.
func (r *HTTPReceiver) writeResponse(w http.ResponseWriter, resp proto.Message) {
	respBytes, err := proto.Marshal(resp)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, bytes.NewReader(respBytes))
}

// ingestExportRequest walks every log record in req, routing each one's
// body into the detector named by its resource's service.name. In detect
// mode, a mismatch is described and forwarded to sink; in training mode the
// line is learned instead.
func ingestExportRequest(ctx context.Context, detectors *anomaly.Registry, sink EventSink, req *collogspb.ExportLogsServiceRequest) error {
	for _, resourceLogs := range req.ResourceLogs {
		name := serviceNameOf(resourceLogs.GetResource().GetAttributes())

		d, err := detectors.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("resolving detector %q: %w", name, err)
		}

		for _, scopeLogs := range resourceLogs.ScopeLogs {
			for _, record := range scopeLogs.LogRecords {
				body := record.GetBody().GetStringValue()
				if body == "" {
					continue
				}

				ev, err := d.Ingest(body)
				if err != nil {
					return fmt.Errorf("ingesting line for detector %q: %w", name, err)
				}
				if ev == nil || sink == nil {
					continue
				}
				if err := sink.StoreEvent(ctx, ev); err != nil {
					log.Printf("Failed to store anomaly event for detector %q: %v\n", name, err)
				}
			}
		}
	}
	return nil
}
