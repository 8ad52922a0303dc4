// Package topology defines the static process/channel layout of a mesh.
//
// A Spec names the processes and the directed channels between them.
// It is loaded from the server configuration (koanf) and validated
// before any transport or node is built from it.
package topology

import (
	"fmt"
	"sort"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// ProcessSpec declares one process in the mesh.
type ProcessSpec struct {
	// ID is the unique process identifier.
	ID string `koanf:"id" json:"id"`

	// InitialBalance seeds the process's application state in the
	// built-in workload (token accounting). Arbitrary applications
	// may ignore it.
	InitialBalance int64 `koanf:"initial_balance" json:"initial_balance"`
}

// ChannelSpec declares one directed channel between two processes.
type ChannelSpec struct {
	From string `koanf:"from" json:"from"`
	To   string `koanf:"to" json:"to"`
}

// Spec is the full mesh layout.
type Spec struct {
	Processes []ProcessSpec `koanf:"processes" json:"processes"`
	Channels  []ChannelSpec `koanf:"channels" json:"channels"`
}

// Ring builds a unidirectional ring over the given process IDs,
// each process starting with the given balance.
func Ring(balance int64, ids ...string) *Spec {
	s := &Spec{}
	for _, id := range ids {
		s.Processes = append(s.Processes, ProcessSpec{ID: id, InitialBalance: balance})
	}
	for i, id := range ids {
		next := ids[(i+1)%len(ids)]
		s.Channels = append(s.Channels, ChannelSpec{From: id, To: next})
	}
	return s
}

// FullMesh builds a complete digraph over the given process IDs.
func FullMesh(balance int64, ids ...string) *Spec {
	s := &Spec{}
	for _, id := range ids {
		s.Processes = append(s.Processes, ProcessSpec{ID: id, InitialBalance: balance})
	}
	for _, from := range ids {
		for _, to := range ids {
			if from == to {
				continue
			}
			s.Channels = append(s.Channels, ChannelSpec{From: from, To: to})
		}
	}
	return s
}

// Validate checks the spec for structural problems: empty or duplicate
// process IDs, channels referencing unknown endpoints, self-loops, and
// duplicate edges.
func (s *Spec) Validate() error {
	if len(s.Processes) == 0 {
		return domain.ErrTopologyInvalid.WithDetails("no processes defined")
	}

	known := make(map[string]struct{}, len(s.Processes))
	for _, p := range s.Processes {
		if !domain.ProcessID(p.ID).Valid() {
			return domain.ErrTopologyInvalid.WithDetails(fmt.Sprintf("invalid process id %q", p.ID))
		}
		if _, dup := known[p.ID]; dup {
			return domain.ErrTopologyInvalid.WithDetails(fmt.Sprintf("duplicate process id %q", p.ID))
		}
		known[p.ID] = struct{}{}
	}

	edges := make(map[domain.ChannelID]struct{}, len(s.Channels))
	for _, c := range s.Channels {
		if _, ok := known[c.From]; !ok {
			return domain.ErrTopologyInvalid.WithDetails(fmt.Sprintf("channel references unknown process %q", c.From))
		}
		if _, ok := known[c.To]; !ok {
			return domain.ErrTopologyInvalid.WithDetails(fmt.Sprintf("channel references unknown process %q", c.To))
		}
		if c.From == c.To {
			return domain.ErrTopologyInvalid.WithDetails(fmt.Sprintf("self-loop on process %q", c.From))
		}
		id := domain.NewChannelID(domain.ProcessID(c.From), domain.ProcessID(c.To))
		if _, dup := edges[id]; dup {
			return domain.ErrTopologyInvalid.WithDetails(fmt.Sprintf("duplicate channel %s", id))
		}
		edges[id] = struct{}{}
	}

	return nil
}

// ProcessIDs returns all process IDs in declaration order.
func (s *Spec) ProcessIDs() []domain.ProcessID {
	ids := make([]domain.ProcessID, 0, len(s.Processes))
	for _, p := range s.Processes {
		ids = append(ids, domain.ProcessID(p.ID))
	}
	return ids
}

// ChannelIDs returns all channel IDs, sorted.
func (s *Spec) ChannelIDs() []domain.ChannelID {
	ids := make([]domain.ChannelID, 0, len(s.Channels))
	for _, c := range s.Channels {
		ids = append(ids, domain.NewChannelID(domain.ProcessID(c.From), domain.ProcessID(c.To)))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Incoming returns the incoming channel IDs of a process, sorted.
func (s *Spec) Incoming(p domain.ProcessID) []domain.ChannelID {
	var ids []domain.ChannelID
	for _, c := range s.Channels {
		if domain.ProcessID(c.To) == p {
			ids = append(ids, domain.NewChannelID(domain.ProcessID(c.From), p))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Outgoing returns the outgoing channel IDs of a process, sorted.
func (s *Spec) Outgoing(p domain.ProcessID) []domain.ChannelID {
	var ids []domain.ChannelID
	for _, c := range s.Channels {
		if domain.ProcessID(c.From) == p {
			ids = append(ids, domain.NewChannelID(p, domain.ProcessID(c.To)))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Process looks up a process spec by ID.
func (s *Spec) Process(id domain.ProcessID) (ProcessSpec, bool) {
	for _, p := range s.Processes {
		if domain.ProcessID(p.ID) == id {
			return p, true
		}
	}
	return ProcessSpec{}, false
}

// TotalBalance sums the initial balances of all processes. The
// built-in workload conserves this quantity, which makes it the
// consistency check for assembled snapshots.
func (s *Spec) TotalBalance() int64 {
	var total int64
	for _, p := range s.Processes {
		total += p.InitialBalance
	}
	return total
}
