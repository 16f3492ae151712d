package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/waxseal/waxseal/internal/api/v1"
	"github.com/waxseal/waxseal/internal/api/ws"
	"github.com/waxseal/waxseal/internal/chain"
	"github.com/waxseal/waxseal/internal/export"
	"github.com/waxseal/waxseal/internal/store/postgres"
)

func registerAPIRoutes(api huma.API, store *postgres.Store, writer *chain.Writer, recorder *chain.Recorder, verifier *chain.Verifier) {
	v1.RegisterEventRoutes(api, store.Entries(), writer, recorder)
	v1.RegisterVerifyRoutes(api, verifier)
}

func registerExportRoutes(r chi.Router, store *postgres.Store, archiver *export.Archiver) {
	// A nil *Archiver must stay a nil interface inside the handler.
	var sink v1.Archiver
	if archiver != nil {
		sink = archiver
	}
	handler := v1.NewExportHandler(store.Entries(), sink)
	r.Get("/audit/events/export", handler.ServeCSV)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/tail", hub.ServeTail)
}
