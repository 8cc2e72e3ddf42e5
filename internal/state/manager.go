// Package state persists console node state between CLI invocations.
// State files are CSV so they can be inspected and edited by hand.
package state

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// optionSeparator joins a node's selector options inside one CSV field
const optionSeparator = "|"

var header = []string{"NodeID", "File", "LoadMode", "Options", "Updated"}

// StateManager manages the node state file.
type StateManager struct {
	stateDir  string
	stateFile string
}

// NodeState is the persisted state of one console node.
type NodeState struct {
	NodeID   string
	File     string
	LoadMode string
	Options  []string
	Updated  time.Time
}

// NewStateManagerWithPath creates a state manager with a specific state file path.
func NewStateManagerWithPath(stateFilePath string) (*StateManager, error) {
	absPath, err := filepath.Abs(stateFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	stateDir := filepath.Dir(absPath)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &StateManager{
		stateDir:  stateDir,
		stateFile: filepath.Base(absPath),
	}, nil
}

// GetStatePath returns the full path to the state file.
func (sm *StateManager) GetStatePath() string {
	return filepath.Join(sm.stateDir, sm.stateFile)
}

// LoadNodes loads all node states from the state file.
func (sm *StateManager) LoadNodes() ([]NodeState, error) {
	statePath := sm.GetStatePath()

	// If file doesn't exist, return empty list
	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		return []NodeState{}, nil
	}

	file, err := os.Open(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	startIdx := 0
	if len(records) > 0 && records[0][0] == header[0] {
		startIdx = 1
	}

	nodes := make([]NodeState, 0, len(records)-startIdx)
	for _, record := range records[startIdx:] {
		if len(record) < len(header) || record[0] == "" {
			continue // Skip invalid records
		}

		updated, _ := time.Parse(time.RFC3339, record[4])
		var options []string
		if record[3] != "" {
			options = strings.Split(record[3], optionSeparator)
		}

		nodes = append(nodes, NodeState{
			NodeID:   record[0],
			File:     record[1],
			LoadMode: record[2],
			Options:  options,
			Updated:  updated,
		})
	}

	return nodes, nil
}

// SaveNodes writes all node states, sorted by id, replacing the file atomically.
func (sm *StateManager) SaveNodes(nodes []NodeState) error {
	statePath := sm.GetStatePath()

	sorted := make([]NodeState, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NodeID < sorted[j].NodeID })

	tmp, err := os.CreateTemp(sm.stateDir, sm.stateFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, n := range sorted {
		record := []string{
			n.NodeID,
			n.File,
			n.LoadMode,
			strings.Join(n.Options, optionSeparator),
			n.Updated.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tmpPath, statePath); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// UpdateNode updates or adds a node state.
func (sm *StateManager) UpdateNode(node NodeState) error {
	nodes, err := sm.LoadNodes()
	if err != nil {
		return err
	}

	if node.Updated.IsZero() {
		node.Updated = time.Now().UTC()
	}

	found := false
	for i, n := range nodes {
		if n.NodeID == node.NodeID {
			nodes[i] = node
			found = true
			break
		}
	}
	if !found {
		nodes = append(nodes, node)
	}

	return sm.SaveNodes(nodes)
}

// GetNode retrieves a node state by id. ok is false when the node has
// never been saved.
func (sm *StateManager) GetNode(nodeID string) (NodeState, bool, error) {
	nodes, err := sm.LoadNodes()
	if err != nil {
		return NodeState{}, false, err
	}

	for _, n := range nodes {
		if n.NodeID == nodeID {
			return n, true, nil
		}
	}
	return NodeState{}, false, nil
}
