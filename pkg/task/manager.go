package task

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager finds and loads tasks under a data root. Every child
// directory holding an info.json is a task.
type Manager struct {
	root string
}

// NewManager points at a data root directory.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Tasks loads every task under the root, in directory name order.
func (m *Manager) Tasks() ([]*Task, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("task: reading data root: %w", err)
	}

	var tasks []*Task
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "info.json")); err != nil {
			continue
		}
		t, err := Load(dir)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Exposed returns only the tasks marked visible in their info.json.
func (m *Manager) Exposed() ([]*Task, error) {
	tasks, err := m.Tasks()
	if err != nil {
		return nil, err
	}
	exposed := tasks[:0]
	for _, t := range tasks {
		if t.Info.Exposed {
			exposed = append(exposed, t)
		}
	}
	return exposed, nil
}

// Task loads the task with the given id.
func (m *Manager) Task(id string) (*Task, error) {
	tasks, err := m.Tasks()
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("task: unknown task %q", id)
}
