package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"onistone.build/internal/persistence/blueprint"
	"onistone.build/internal/protocol"
	"onistone.build/internal/sim/session"
)

type blueprintArgs struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Shared        bool   `json:"shared"`
	Index         *int   `json:"index"`
	IncludeShared *bool  `json:"include_shared"`
}

func (e *Engine) blueprintStore() (*blueprint.Store, error) {
	if e.blueprints == nil {
		return nil, fmt.Errorf("blueprint storage is not configured")
	}
	return e.blueprints, nil
}

func (e *Engine) cmdBlueprintSave(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a blueprintArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	st, err := e.blueprintStore()
	if err != nil {
		return nil, err
	}
	if err := blueprint.ValidName(a.Name); err != nil {
		return nil, err
	}
	if a.Shared && !s.Bypass {
		return nil, fmt.Errorf("%w: only admins publish shared blueprints", ErrDenied)
	}
	ce, err := e.clipAt(s, a.Index)
	if err != nil {
		return nil, err
	}
	meta := blueprint.Metadata{
		Description: a.Description,
		Author:      s.Name,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	path, err := st.Save(s.ActorID, a.Name, ce, meta, a.Shared)
	if err != nil {
		return nil, err
	}
	w, h, l := ce.Buffer.Dims()
	rec := BlueprintRecord{
		Actor:      s.ActorID,
		Name:       a.Name,
		Shared:     a.Shared,
		Path:       path,
		Dimensions: [3]int{w, h, l},
		BlockCount: ce.NonAirCount(),
		SavedAt:    e.now(),
	}
	if err := e.journal.RecordBlueprint(rec); err != nil {
		e.log.WithError(err).WithField("blueprint", a.Name).Warn("journal write failed")
	}
	e.log.WithFields(logrus.Fields{"actor": s.ActorID, "blueprint": a.Name, "shared": a.Shared}).Info("blueprint saved")
	return rec, nil
}

// cmdBlueprintLoad decodes a blueprint into a new clipboard entry. Payloads
// the server does not permit are stripped.
func (e *Engine) cmdBlueprintLoad(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a blueprintArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	st, err := e.blueprintStore()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Name) == "" {
		return nil, badRequest("BP_LOAD needs name")
	}
	ce, meta, err := st.Load(s.ActorID, a.Name)
	if err != nil {
		return nil, err
	}
	if !e.cfg.Permissions.AllowInventories {
		ce.BlockEntities = nil
	}
	if !e.cfg.Permissions.AllowEntities {
		ce.Entities = nil
	}
	ce.Label = a.Name
	ce.Dimension = s.Dimension
	s.Clipboard.Push(ce)
	return struct {
		Metadata  blueprint.Metadata `json:"metadata"`
		Clipboard clipInfo           `json:"clipboard"`
	}{meta, describeClip(ce, s.Clipboard)}, nil
}

func (e *Engine) cmdBlueprintList(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a blueprintArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	st, err := e.blueprintStore()
	if err != nil {
		return nil, err
	}
	names, err := st.List(s.ActorID, a.IncludeShared == nil || *a.IncludeShared)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return map[string][]string{"blueprints": names}, nil
}

func (e *Engine) cmdBlueprintDelete(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a blueprintArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	st, err := e.blueprintStore()
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(a.Name, blueprint.SharedPrefix) && !s.Bypass {
		return nil, fmt.Errorf("%w: only admins delete shared blueprints", ErrDenied)
	}
	if err := st.Delete(s.ActorID, a.Name); err != nil {
		return nil, err
	}
	return map[string]string{"deleted": a.Name}, nil
}
