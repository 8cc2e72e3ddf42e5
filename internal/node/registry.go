package node

import (
	"context"
	"sync"

	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/filetype"
)

// InitStep runs once on every newly constructed node of its type.
type InitStep func(n Node)

// Registry keeps the ordered initialization steps per node type. Hosts
// build a node, then call Construct; later registrations run after
// earlier ones.
type Registry struct {
	mu    sync.RWMutex
	steps map[string][]InitStep
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string][]InitStep)}
}

// Register appends step to nodeType's initialization
func (r *Registry) Register(nodeType string, step InitStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[nodeType] = append(r.steps[nodeType], step)
}

// Steps returns the number of steps registered for nodeType
func (r *Registry) Steps(nodeType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps[nodeType])
}

// Construct runs n's registered steps in order
func (r *Registry) Construct(n Node) {
	r.mu.RLock()
	steps := make([]InitStep, len(r.steps[n.Type()]))
	copy(steps, r.steps[n.Type()])
	r.mu.RUnlock()

	for _, step := range steps {
		step(n)
	}
}

// DeclareInputs is the node type's own step: the "file" selector and the
// "load_mode" selector. It must run before the upload extension's step.
func DeclareInputs(n Node) {
	n.AddControl(ControlSpec{
		Kind:    KindCombo,
		Name:    constants.FileControlName,
		Options: []string{},
	})
	n.AddControl(ControlSpec{
		Kind:    KindCombo,
		Name:    constants.LoadModeControlName,
		Value:   string(filetype.ModeAuto),
		Options: filetype.Modes(),
	})
}

// Extension attaches an upload Controller and its two buttons to every
// LoadFileWithButton node a host constructs.
type Extension struct {
	ctx    context.Context
	client TransferClient
	opts   ControllerOptions

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewExtension creates the extension. ctx bounds the workflows started
// from button clicks.
func NewExtension(ctx context.Context, client TransferClient, opts ControllerOptions) *Extension {
	return &Extension{
		ctx:         ctx,
		client:      client,
		opts:        opts,
		controllers: make(map[string]*Controller),
	}
}

// Register adds the node type's inputs and this extension's step to reg.
func (e *Extension) Register(reg *Registry) {
	if reg.Steps(constants.NodeType) == 0 {
		reg.Register(constants.NodeType, DeclareInputs)
	}
	reg.Register(constants.NodeType, e.attach)
}

func (e *Extension) attach(n Node) {
	ctrl := NewController(n, e.client, e.opts)

	e.mu.Lock()
	e.controllers[n.ID()] = ctrl
	e.mu.Unlock()

	// Button callbacks run on the host's UI thread; the workflow blocks
	// on the picker and the network so it runs on its own goroutine.
	n.AddControl(ControlSpec{
		Kind: KindButton,
		Name: constants.UploadButtonName,
		OnClick: func() {
			go func() { _ = ctrl.InitiateUpload(e.ctx) }()
		},
	})
	n.AddControl(ControlSpec{
		Kind: KindButton,
		Name: constants.RefreshButtonName,
		OnClick: func() {
			go ctrl.RefreshFileList(e.ctx)
		},
	})
}

// Controller returns the controller attached to the node with id nodeID
func (e *Extension) Controller(nodeID string) (*Controller, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctrl, ok := e.controllers[nodeID]
	return ctrl, ok
}

// Detach forgets the controller of a removed node
func (e *Extension) Detach(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.controllers, nodeID)
}
