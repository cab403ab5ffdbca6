package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"asnlookup/internal/api/dto"
	"asnlookup/internal/config"
	"asnlookup/internal/lookup"
	"asnlookup/internal/metrics"
)

const bulkBytesPerIP = 64

func lookupStatus(err error) int {
	switch {
	case errors.Is(err, lookup.ErrInvalidIP), errors.Is(err, lookup.ErrIPv6):
		return http.StatusBadRequest
	case errors.Is(err, lookup.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lookup.ErrNoIndex):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) getSingle(w http.ResponseWriter, r *http.Request) {
	res, err := s.lookup.Lookup(r.Context(), r.URL.Query().Get("ip"))
	if err != nil {
		writeError(w, lookup.Message(err), lookupStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, lookup.Info(res, nil))
}

type bulkTask struct {
	ctx context.Context
	ip  string
	out *dto.IPInfo
	wg  *sync.WaitGroup
}

func (s *Server) resolveBulkTask(arg any) {
	task := arg.(*bulkTask)
	defer task.wg.Done()
	res, err := s.lookup.Lookup(task.ctx, task.ip)
	*task.out = lookup.Info(res, err)
}

func (s *Server) postBulk(w http.ResponseWriter, r *http.Request) {
	maxIPs := config.GetConfig().Bulk.MaxIPs
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxIPs*bulkBytesPerIP+1024))

	var req dto.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "Too many IP addresses", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IPs) > maxIPs {
		writeError(w, "Too many IP addresses", http.StatusRequestEntityTooLarge)
		return
	}
	if !s.lookup.Ready() {
		writeError(w, lookup.Message(lookup.ErrNoIndex), http.StatusServiceUnavailable)
		return
	}

	metrics.RecordBulkBatch(len(req.IPs))

	results := make([]dto.IPInfo, len(req.IPs))
	var wg sync.WaitGroup
	for i, ip := range req.IPs {
		wg.Add(1)
		task := &bulkTask{ctx: r.Context(), ip: ip, out: &results[i], wg: &wg}
		if err := s.bulkPool.Invoke(task); err != nil {
			s.resolveBulkTask(task)
		}
	}
	wg.Wait()

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.reloader.Status()
	if status.Generation == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "generation": status.Generation})
}
