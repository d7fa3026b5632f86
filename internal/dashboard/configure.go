package dashboard

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/knx2openhab/dashboard/internal/client"
	"github.com/knx2openhab/dashboard/internal/configform"
	"github.com/knx2openhab/dashboard/internal/services"
)

// LoadConfig fetches the configuration document and its schema and shows
// the generated form. Without a schema one is inferred from the document.
func (s *Session) LoadConfig(ctx context.Context) error {
	doc, err := s.deps.Backend.GetConfig(ctx)
	if err != nil {
		return s.fail("Loading configuration", err)
	}

	var schema *configform.Schema
	raw, err := s.deps.Backend.GetConfigSchema(ctx)
	switch {
	case err != nil:
		s.debugf("%s: no configuration schema: %v", s.id, err)
	case len(raw) > 0:
		schema, err = configform.ParseSchema(raw)
		if err != nil {
			log.Printf("[Config] Ignoring invalid schema: %v", err)
			schema = nil
		}
	}
	if schema != nil && len(schema.Properties) == 0 {
		schema = nil
	}

	s.binder.Load(doc, schema)
	s.view.Config(s.binder.Fields(), nil, s.CurrentJob())
	return nil
}

// SaveConfig merges the submitted form over the loaded document and saves
// it. Fields that fail to parse keep their previous value and are returned
// so the form can mark them. With reprocess set the selected job is rerun
// after a successful save.
func (s *Session) SaveConfig(ctx context.Context, form url.Values, reprocess bool) ([]configform.FieldError, error) {
	if !s.binder.Loaded() {
		return nil, s.fail("Saving configuration", ErrConfigNotLoaded)
	}

	doc, fieldErrs := s.binder.Extract(form)
	if err := s.deps.Backend.SaveConfig(ctx, doc); err != nil {
		s.record(services.ActionSaveConfig, "", "", false, client.Message(err))
		s.view.Config(s.binder.Fields(), fieldErrs, s.CurrentJob())
		return fieldErrs, s.fail("Saving configuration", err)
	}
	s.binder.Commit(doc)
	s.record(services.ActionSaveConfig, "", "", true, fmt.Sprintf("%d field errors", len(fieldErrs)))

	jobID := s.CurrentJob()
	s.view.Config(s.binder.Fields(), fieldErrs, jobID)
	if len(fieldErrs) > 0 {
		s.info("Configuration saved, %d fields kept their previous value", len(fieldErrs))
	} else {
		s.info("Configuration saved")
	}

	if !reprocess {
		return fieldErrs, nil
	}
	if jobID == "" {
		return fieldErrs, s.fail("Reprocess", ErrNoJobSelected)
	}
	if _, err := s.Rerun(ctx, jobID); err != nil {
		return fieldErrs, err
	}
	return fieldErrs, nil
}

// CloseConfig hides the configuration form.
func (s *Session) CloseConfig() {
	s.view.Config(nil, nil, "")
}

// ConfigFields returns the fields of the loaded configuration.
func (s *Session) ConfigFields() []configform.Field {
	return s.binder.Fields()
}
