// Package leads provides the lead lifecycle bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"leadcrm_backend/internal/events"
	apphttp "leadcrm_backend/internal/http"
	"leadcrm_backend/internal/leads/dedup"
	"leadcrm_backend/internal/leads/distribution"
	"leadcrm_backend/internal/leads/handler"
	"leadcrm_backend/internal/leads/management"
	"leadcrm_backend/internal/leads/notes"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/scheduling"
	"leadcrm_backend/internal/leads/scoring"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler      *handler.Handler
	public       *handler.PublicHandler
	orchestrator *Orchestrator
	directory    Directory
}

// NewModule creates and initializes the leads module with all its
// dependencies. locker serializes distribution runs across processes; pass
// distribution.NoopLocker{} when running a single instance.
func NewModule(store repository.LeadStore, eventBus events.Bus, locker distribution.Locker, val *validator.Validator, cfg config.LeadsConfig, log *logger.Logger) *Module {
	// Create focused services (vertical slices)
	mgmtSvc := management.New(store, eventBus, log, cfg.GetPhoneDefaultRegion())
	schedulingSvc := scheduling.New(store, eventBus, log)
	notesSvc := notes.New(store, log)

	orchestrator := NewOrchestrator(OrchestratorDeps{
		Store:        store,
		Management:   mgmtSvc,
		Scheduling:   schedulingSvc,
		Notes:        notesSvc,
		Scoring:      scoring.New(store),
		Merger:       dedup.NewMerger(store, log),
		Distribution: distribution.New(store, locker, eventBus, log),
		EventBus:     eventBus,
		Log:          log,
	})

	// Create handlers
	notesHandler := handler.NewNotesHandler(notesSvc, val)
	h := handler.New(orchestrator, mgmtSvc, schedulingSvc, notesHandler, val)

	return &Module{
		handler:      h,
		public:       handler.NewPublicHandler(orchestrator, val),
		orchestrator: orchestrator,
		directory:    NewDirectory(store),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Orchestrator returns the lifecycle orchestrator for jobs and other callers.
func (m *Module) Orchestrator() *Orchestrator {
	return m.orchestrator
}

// Directory returns the public lookup API.
func (m *Module) Directory() Directory {
	return m.directory
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))
	m.public.RegisterRoutes(ctx.Public)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
