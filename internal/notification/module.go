// Package notification provides event handlers for sending notifications
// (emails and in-app messages) in response to lead lifecycle events.
// This module subscribes to events and inverts the dependency: the leads
// module does not know about email providers or templates.
package notification

import (
	"context"
	"errors"
	"fmt"

	"leadcrm_backend/internal/email"
	"leadcrm_backend/internal/events"
	apphttp "leadcrm_backend/internal/http"
	"leadcrm_backend/internal/leads"
	notifhandler "leadcrm_backend/internal/notification/handler"
	"leadcrm_backend/internal/notification/inapp"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const resourceTypeLead = "lead"

// Subscriber is the slice of the event bus the module registers on.
type Subscriber interface {
	Subscribe(eventName string, handler events.Handler)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	inApp     *inapp.Service
	handler   *notifhandler.HTTPHandler
	sender    email.Sender
	directory leads.Directory
	log       *logger.Logger
}

// New creates a notification module.
func New(inApp *inapp.Service, sender email.Sender, directory leads.Directory, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{
		inApp:     inApp,
		handler:   notifhandler.NewHTTPHandler(inApp),
		sender:    sender,
		directory: directory,
		log:       log,
	}
}

// Name implements apphttp.Module.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes implements apphttp.Module.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/notifications"))
}

// RegisterHandlers subscribes the module to lead lifecycle events.
func (m *Module) RegisterHandlers(bus Subscriber) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(m.handleLeadAssigned))
	bus.Subscribe(events.FollowUpScheduled{}.EventName(), events.HandlerFunc(m.handleFollowUpScheduled))
	bus.Subscribe(events.LeadsMerged{}.EventName(), events.HandlerFunc(m.handleLeadsMerged))
	bus.Subscribe(events.LeadConverted{}.EventName(), events.HandlerFunc(m.handleLeadConverted))

	m.log.Info("notification module registered event handlers")
}

func (m *Module) handleLeadAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadAssigned)
	if !ok {
		return nil
	}

	m.sendInApp(ctx, inapp.SendParams{
		UserID:       e.UserID,
		Title:        "New lead assigned",
		Content:      fmt.Sprintf("%s (%s) was assigned to you.", e.LeadName, e.Mobile),
		ResourceID:   &e.LeadID,
		ResourceType: resourceTypeLead,
		Category:     inapp.CategoryInfo,
	})

	if e.UserEmail == "" {
		return nil
	}
	if err := m.sender.SendLeadAssignedEmail(ctx, e.UserEmail, e.UserName, e.LeadName, e.Mobile, e.City); err != nil {
		m.log.Error("failed to send lead assigned email", "error", err, "leadId", e.LeadID, "userId", e.UserID)
		return err
	}
	m.log.Info("lead assigned email sent", "leadId", e.LeadID, "userId", e.UserID)
	return nil
}

func (m *Module) handleFollowUpScheduled(ctx context.Context, event events.Event) error {
	e, ok := event.(events.FollowUpScheduled)
	if !ok || e.AssignedUserID == nil {
		return nil
	}
	// The owner scheduled it themselves.
	if e.ActorID != nil && *e.ActorID == *e.AssignedUserID {
		return nil
	}

	m.sendInApp(ctx, inapp.SendParams{
		UserID:       *e.AssignedUserID,
		Title:        "Follow-up scheduled",
		Content:      fmt.Sprintf("Follow-up with %s on %s.", e.LeadName, e.ScheduledAt.Format("02 Jan 2006 15:04")),
		ResourceID:   &e.LeadID,
		ResourceType: resourceTypeLead,
		Category:     inapp.CategoryInfo,
	})

	owner, err := m.directory.GetUser(ctx, *e.AssignedUserID)
	if err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			return nil
		}
		m.log.Error("failed to load follow-up owner", "error", err, "userId", *e.AssignedUserID)
		return err
	}
	if owner.Email == "" {
		return nil
	}
	if err := m.sender.SendFollowUpScheduledEmail(ctx, owner.Email, owner.Name, e.LeadName, e.ScheduledAt); err != nil {
		m.log.Error("failed to send follow-up email", "error", err, "leadId", e.LeadID, "followUpId", e.FollowUpID)
		return err
	}
	return nil
}

func (m *Module) handleLeadsMerged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadsMerged)
	if !ok || e.AssignedUserID == nil {
		return nil
	}

	name := m.leadName(ctx, e.PrimaryLeadID)
	m.sendInApp(ctx, inapp.SendParams{
		UserID:       *e.AssignedUserID,
		Title:        "Leads merged",
		Content:      fmt.Sprintf("%d duplicate(s) were merged into %s.", len(e.MergedLeadIDs), name),
		ResourceID:   &e.PrimaryLeadID,
		ResourceType: resourceTypeLead,
		Category:     inapp.CategoryWarning,
	})
	return nil
}

func (m *Module) handleLeadConverted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadConverted)
	if !ok || e.AssignedUserID == nil {
		return nil
	}

	m.sendInApp(ctx, inapp.SendParams{
		UserID:       *e.AssignedUserID,
		Title:        "Lead converted",
		Content:      fmt.Sprintf("%s is now a client.", e.LeadName),
		ResourceID:   &e.LeadID,
		ResourceType: resourceTypeLead,
		Category:     inapp.CategorySuccess,
	})
	return nil
}

// sendInApp persists a notification. Failures are logged by the service
// and never fail the event handler.
func (m *Module) sendInApp(ctx context.Context, p inapp.SendParams) {
	_, _ = m.inApp.Send(ctx, p)
}

func (m *Module) leadName(ctx context.Context, id uuid.UUID) string {
	lead, err := m.directory.GetLead(ctx, id)
	if err != nil {
		return "the primary lead"
	}
	return lead.Name
}

var _ apphttp.Module = (*Module)(nil)
