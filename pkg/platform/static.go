package platform

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Static serves device state from memory. It backs one-off CLI runs
// against a snapshot file and stands in for the host in tests.
type Static struct {
	mu     sync.RWMutex
	agents map[string]*Snapshot
}

// Snapshot is the state of one device.
type Snapshot struct {
	Name       string         `yaml:"name"`
	Connection *Connection    `yaml:"connection"`
	Tags       map[string]any `yaml:"tags"`
}

// NewStatic creates an empty static platform.
func NewStatic() *Static {
	return &Static{agents: make(map[string]*Snapshot)}
}

// LoadStatic reads a YAML file mapping agent ids to snapshots:
//
//	pump-7:
//	  name: Pump 7
//	  connection: {online: false, last_seen: 2026-10-15T09:00:00Z}
//	  tags: {temperature: 101.5}
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", path, err)
	}
	var agents map[string]*Snapshot
	if err := yaml.Unmarshal(data, &agents); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	s := NewStatic()
	for id, snap := range agents {
		if snap != nil {
			s.Put(id, *snap)
		}
	}
	return s, nil
}

// Put replaces the snapshot for agentID.
func (s *Static) Put(agentID string, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agentID] = &snap
}

// SetConnection updates connectivity for agentID.
func (s *Static) SetConnection(agentID string, c Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot(agentID)
	snap.Connection = &c
}

// SetTag updates one tag value for agentID.
func (s *Static) SetTag(agentID, tag string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot(agentID)
	if snap.Tags == nil {
		snap.Tags = make(map[string]any)
	}
	snap.Tags[tag] = value
}

func (s *Static) snapshot(agentID string) *Snapshot {
	snap, ok := s.agents[agentID]
	if !ok {
		snap = &Snapshot{}
		s.agents[agentID] = snap
	}
	return snap
}

func (s *Static) Connection(_ context.Context, agentID string) (Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.agents[agentID]
	if !ok || snap.Connection == nil {
		return Connection{}, fmt.Errorf("connection for %q: %w", agentID, ErrNotFound)
	}
	return *snap.Connection, nil
}

func (s *Static) AgentName(_ context.Context, agentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.agents[agentID]
	if !ok || snap.Name == "" {
		return "", fmt.Errorf("agent %q: %w", agentID, ErrNotFound)
	}
	return snap.Name, nil
}

func (s *Static) TagValues(_ context.Context, agentID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("tag values for %q: %w", agentID, ErrNotFound)
	}
	out := make(map[string]any, len(snap.Tags))
	for k, v := range snap.Tags {
		out[k] = v
	}
	return out, nil
}
