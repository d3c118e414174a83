package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"onistone.build/internal/protocol"
	"onistone.build/internal/sim/session"
	"onistone.build/internal/sim/voxel"
	"onistone.build/internal/sim/zones"
)

type zoneArgs struct {
	Name         string   `json:"name"`
	Pos          *[3]int  `json:"pos"`
	Dimension    string   `json:"dimension"`
	Radius       int      `json:"radius"`
	Hours        *float64 `json:"hours"`
	UseSelection bool     `json:"use_selection"`
	Builder      string   `json:"builder"`
	All          bool     `json:"all"`
}

type zoneInfo struct {
	zones.Zone
	Volume    int    `json:"volume"`
	Remaining string `json:"remaining,omitempty"`
}

func (e *Engine) describeZone(z zones.Zone) zoneInfo {
	info := zoneInfo{Zone: z, Volume: z.Bounds().Volume()}
	if z.ExpiresAt != nil {
		if d := z.ExpiresAt.Sub(e.now()); d > 0 {
			info.Remaining = d.Truncate(time.Minute).String()
		}
	}
	return info
}

func (e *Engine) zoneName(s *session.Session, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	for n := len(e.zones.All()) + 1; ; n++ {
		cand := fmt.Sprintf("%s_zone_%d", s.Name, n)
		if _, ok := e.zones.Get(cand); !ok {
			return cand
		}
	}
}

// cmdZoneCreate claims either the current selection or a cube around pos.
func (e *Engine) cmdZoneCreate(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a zoneArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	hours := float64(e.cfg.Zones.DefaultDurationHours)
	if a.Hours != nil {
		hours = *a.Hours
	}
	if hours < 0 {
		return nil, badRequest("hours must not be negative")
	}
	dur := time.Duration(hours * float64(time.Hour))
	name := e.zoneName(s, a.Name)

	var (
		z   *zones.Zone
		err error
	)
	if a.UseSelection {
		b, serr := e.selectionBox(s)
		if serr != nil {
			return nil, serr
		}
		if v := b.Volume(); v > e.cfg.Limits.MaxSelectionVolume && !s.Bypass {
			return nil, fmt.Errorf("%w: zone volume %d > %d", ErrLimit, v, e.cfg.Limits.MaxSelectionVolume)
		}
		z, err = e.zones.Create(name, s.Name, b.Min, b.Max, s.Selection.Dimension, dur)
	} else {
		if a.Pos == nil {
			return nil, badRequest("ZONE_CREATE needs pos or use_selection")
		}
		dim, _, derr := e.dimensionOf(s, a.Dimension)
		if derr != nil {
			return nil, derr
		}
		r := a.Radius
		if r == 0 {
			r = e.cfg.Zones.DefaultRadius
		}
		if r < 1 {
			return nil, badRequest("radius must be positive")
		}
		z, err = e.zones.CreateAt(name, s.Name, voxel.FromArray(*a.Pos), dim, r, dur)
	}
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"zone": z.Name, "owner": z.Owner, "bounds": z.Bounds().String()}).Info("zone created")
	return e.describeZone(*z), nil
}

func (e *Engine) ownedZone(s *session.Session, name string) (*zones.Zone, error) {
	z, ok := e.zones.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", zones.ErrZoneNotFound, name)
	}
	if z.Owner != s.Name && !s.Bypass {
		return nil, fmt.Errorf("%w: zone %s belongs to %s", ErrDenied, z.Name, z.Owner)
	}
	return z, nil
}

func (e *Engine) cmdZoneDelete(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a zoneArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	z, err := e.ownedZone(s, a.Name)
	if err != nil {
		return nil, err
	}
	e.zones.Delete(z.Name)
	return map[string]string{"deleted": z.Name}, nil
}

func (e *Engine) cmdZoneAddBuilder(s *session.Session, c protocol.CommandMsg) (any, error) {
	return e.editBuilders(s, c, e.zones.AddBuilder)
}

func (e *Engine) cmdZoneRemoveBuilder(s *session.Session, c protocol.CommandMsg) (any, error) {
	return e.editBuilders(s, c, e.zones.RemoveBuilder)
}

func (e *Engine) editBuilders(s *session.Session, c protocol.CommandMsg, fn func(zone, name string) error) (any, error) {
	var a zoneArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Builder) == "" {
		return nil, badRequest("%s needs builder", c.Cmd)
	}
	z, err := e.ownedZone(s, a.Name)
	if err != nil {
		return nil, err
	}
	if err := fn(z.Name, a.Builder); err != nil {
		return nil, err
	}
	return e.describeZone(*z), nil
}

func (e *Engine) cmdZoneList(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a zoneArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	list := e.zones.ForActor(s.Name)
	if a.All && s.Bypass {
		list = e.zones.All()
	}
	out := make([]zoneInfo, 0, len(list))
	for _, z := range list {
		out = append(out, e.describeZone(z))
	}
	return map[string][]zoneInfo{"zones": out}, nil
}

// cmdZoneInfo looks a zone up by name, or lists the zones covering pos.
func (e *Engine) cmdZoneInfo(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a zoneArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	if a.Name != "" {
		z, ok := e.zones.Get(a.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", zones.ErrZoneNotFound, a.Name)
		}
		return e.describeZone(*z), nil
	}
	if a.Pos == nil {
		return nil, badRequest("ZONE_INFO needs name or pos")
	}
	dim, _, err := e.dimensionOf(s, a.Dimension)
	if err != nil {
		return nil, err
	}
	p := voxel.FromArray(*a.Pos)
	var out []zoneInfo
	for _, z := range e.zones.At(p, dim) {
		out = append(out, e.describeZone(*z))
	}
	return map[string]any{
		"zones":     out,
		"can_build": !e.cfg.Zones.RequireZone || e.zones.CanBuild(s.Name, p, dim, s.Bypass),
	}, nil
}

// SaveZones writes the zone list. Call it from the engine goroutine or after
// Run has returned.
func (e *Engine) SaveZones(path string) error { return e.zones.Save(path) }
