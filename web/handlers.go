package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbocsi/avi/proto"
	"github.com/mbocsi/avi/services"
)

func (w *WebClient) HandleHome(wr http.ResponseWriter, r *http.Request) {
	http.Redirect(wr, r, "/devices", http.StatusMovedPermanently)
}

func (w *WebClient) HandleDevices(wr http.ResponseWriter, r *http.Request) {
	devices, err := w.services.Device.ListDevices()
	if err != nil {
		w.handleError(wr, err)
		return
	}
	writeJSON(wr, http.StatusOK, devices)
}

func (w *WebClient) HandleDeviceDetail(wr http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	device, err := w.services.Device.GetDevice(id)
	if err != nil {
		w.handleError(wr, err)
		return
	}
	writeJSON(wr, http.StatusOK, device)
}

func (w *WebClient) HandleDeviceSensors(wr http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sensors, err := w.services.Device.GetDeviceSensors(id)
	if err != nil {
		w.handleError(wr, err)
		return
	}
	writeJSON(wr, http.StatusOK, sensors)
}

func (w *WebClient) HandleTopics(wr http.ResponseWriter, r *http.Request) {
	topics, err := w.services.Topic.ListTopics()
	if err != nil {
		w.handleError(wr, err)
		return
	}
	writeJSON(wr, http.StatusOK, topics)
}

func (w *WebClient) HandleTransports(wr http.ResponseWriter, r *http.Request) {
	transports, err := w.services.Transport.ListTransports()
	if err != nil {
		w.handleError(wr, err)
		return
	}
	writeJSON(wr, http.StatusOK, transports)
}

func (w *WebClient) HandleTransportDetail(wr http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "i"))
	if err != nil {
		http.Error(wr, "Invalid transport index", http.StatusBadRequest)
		return
	}
	transport, err := w.services.Transport.GetTransport(i)
	if err != nil {
		w.handleError(wr, err)
		return
	}
	writeJSON(wr, http.StatusOK, transport)
}

// readPayload reads at most one payload plus a byte so oversize bodies are
// rejected by the service layer rather than truncated.
func readPayload(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, proto.MaxDataLen+1))
}

// HandlePublish publishes the request body on the topic in the path
func (w *WebClient) HandlePublish(wr http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "*")
	data, err := readPayload(r)
	if err != nil {
		http.Error(wr, "Failed to read body", http.StatusBadRequest)
		return
	}

	n, err := w.services.Messaging.Publish(topic, data)
	if err != nil {
		w.handleError(wr, err)
		return
	}

	writeJSON(wr, http.StatusAccepted, map[string]interface{}{
		"topic":       topic,
		"bytes":       len(data),
		"subscribers": n,
	})
}

// HandleRequest publishes the body and waits for a reply on the topic
// given by the reply query parameter
func (w *WebClient) HandleRequest(wr http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "*")
	replyTopic := r.URL.Query().Get("reply")

	timeout := 5 * time.Second
	if s := r.URL.Query().Get("timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			http.Error(wr, "Invalid timeout", http.StatusBadRequest)
			return
		}
		timeout = d
	}

	data, err := readPayload(r)
	if err != nil {
		http.Error(wr, "Failed to read body", http.StatusBadRequest)
		return
	}

	reply, err := w.services.Messaging.Request(topic, replyTopic, data, timeout)
	if err != nil {
		w.handleError(wr, err)
		return
	}
	writeJSON(wr, http.StatusOK, reply)
}

func writeJSON(wr http.ResponseWriter, status int, v interface{}) {
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(status)
	if err := json.NewEncoder(wr).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// handleError handles service errors with proper HTTP status codes
func (w *WebClient) handleError(wr http.ResponseWriter, err error) {
	slog.Error("Service error", "error", err)

	var serviceErr services.ServiceError
	if errors.As(err, &serviceErr) {
		status := http.StatusInternalServerError
		switch serviceErr.Code {
		case services.ErrCodeNotFound:
			status = http.StatusNotFound
		case services.ErrCodeInvalidInput:
			status = http.StatusBadRequest
		case services.ErrCodeTimeout:
			status = http.StatusGatewayTimeout
		}

		writeJSON(wr, status, map[string]string{
			"code":  serviceErr.Code,
			"error": serviceErr.Error(),
		})
		return
	}

	http.Error(wr, "Internal server error", http.StatusInternalServerError)
}
