package sensibohkbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brutella/hap/log"

	"github.com/go-chi/chi/v5"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

const jsonOK = `{ "status": "OK" }`

type deviceStatus struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Kind        string      `json:"kind"`
	Phase       string      `json:"phase"`
	LastRefresh *time.Time  `json:"lastStateRefresh,omitempty"`
	State       state.State `json:"state"`
}

func (p *Platform) statuses() []deviceStatus {
	p.mu.Lock()
	records := make([]record, len(p.records))
	copy(records, p.records)
	p.mu.Unlock()

	out := make([]deviceStatus, 0, len(records))
	for _, r := range records {
		ds := deviceStatus{
			ID:    r.ctl.ID(),
			Name:  r.ctl.Name(),
			Kind:  r.kind,
			Phase: r.ctl.Phase().String(),
			State: r.ctl.Snapshot(),
		}
		if t := r.ctl.LastStateRefresh(); !t.IsZero() {
			ds.LastRefresh = &t
		}
		out = append(out, ds)
	}
	return out
}

func (p *Platform) router() http.Handler {
	router := chi.NewRouter()

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		last, err := p.poller.LastRefresh()
		fmt.Fprintf(w, "Sensibo HomeKit Bridge\nlast refresh: %s\n", last.Format(time.RFC3339))
		if err != nil {
			fmt.Fprintf(w, "last error: %s\n", err.Error())
		}
	})

	router.Get("/devices", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(p.statuses()); err != nil {
			log.Info.Printf("unable to encode device list: %s", err.Error())
		}
	})

	router.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
		log.Info.Printf("refresh requested from %s", r.RemoteAddr)
		p.poller.RequestRefresh()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, jsonOK)
	})

	return router
}

// HTTPServer serves the status endpoint until ctx is done
func (p *Platform) HTTPServer(ctx context.Context, addr string) {
	srv := &http.Server{
		Handler:      p.router(),
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Info.Printf("starting http service at %s", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Info.Printf("http service: %s", err.Error())
		}
	}()
	<-ctx.Done()
	log.Info.Printf("stopping http service")
	srv.Shutdown(context.Background())
}
