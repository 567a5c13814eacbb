package gpu

import "fmt"

type CachedPipelineId int

type pipelineState int

const (
	pipelineQueued pipelineState = iota
	pipelineReady
	pipelineFailed
)

type cachedPipeline struct {
	descriptor *RenderPipelineDescriptor
	state      pipelineState
	pipeline   RenderPipeline
	err        error
}

// PipelineCache owns shader sources and render pipelines. Pipelines are
// queued during the queue stage and created by ProcessQueue right before
// drawing, so an item referencing a pipeline that is still queued or failed
// simply does not draw.
type PipelineCache struct {
	device    Device
	logger    Logger
	shaders   map[ShaderHandle]string
	modules   map[ShaderHandle]ShaderModule
	pipelines []*cachedPipeline
	waiting   []CachedPipelineId

	// Validate, when set, checks WGSL sources before a module is created.
	Validate func(source string) error
}

func NewPipelineCache(device Device, logger Logger) *PipelineCache {
	if logger == nil {
		logger = nopLogger{}
	}
	return &PipelineCache{
		device:  device,
		logger:  logger,
		shaders: make(map[ShaderHandle]string),
		modules: make(map[ShaderHandle]ShaderModule),
	}
}

// SetShader registers or replaces a shader source. Replacing a source
// requeues every pipeline that failed, since the new source may fix it.
func (c *PipelineCache) SetShader(handle ShaderHandle, source string) {
	if old, ok := c.modules[handle]; ok {
		old.Release()
		delete(c.modules, handle)
	}
	c.shaders[handle] = source

	for i, p := range c.pipelines {
		if p.state == pipelineFailed {
			p.state = pipelineQueued
			p.err = nil
			c.waiting = append(c.waiting, CachedPipelineId(i))
		}
	}
}

func (c *PipelineCache) HasShader(handle ShaderHandle) bool {
	_, ok := c.shaders[handle]
	return ok
}

// QueueRenderPipeline records a descriptor and returns its id. Creation is
// deferred to ProcessQueue.
func (c *PipelineCache) QueueRenderPipeline(desc *RenderPipelineDescriptor) CachedPipelineId {
	id := CachedPipelineId(len(c.pipelines))
	c.pipelines = append(c.pipelines, &cachedPipeline{descriptor: desc})
	c.waiting = append(c.waiting, id)
	return id
}

// ProcessQueue creates every queued pipeline. Failures are logged and kept
// until the shader they depend on is replaced.
func (c *PipelineCache) ProcessQueue() {
	waiting := c.waiting
	c.waiting = nil

	for _, id := range waiting {
		p := c.pipelines[id]
		if p.state != pipelineQueued {
			continue
		}
		pipeline, err := c.createPipeline(p.descriptor)
		if err != nil {
			p.state = pipelineFailed
			p.err = err
			c.logger.Errorf("pipeline %q: %v", p.descriptor.Label, err)
			continue
		}
		p.state = pipelineReady
		p.pipeline = pipeline
		c.logger.Debugf("pipeline %q ready (id %d)", p.descriptor.Label, id)
	}
}

// GetRenderPipeline returns the created pipeline, or nil while it is queued
// or after it failed.
func (c *PipelineCache) GetRenderPipeline(id CachedPipelineId) RenderPipeline {
	if int(id) < 0 || int(id) >= len(c.pipelines) {
		return nil
	}
	p := c.pipelines[id]
	if p.state != pipelineReady {
		return nil
	}
	return p.pipeline
}

// Descriptor returns the descriptor a pipeline was queued with.
func (c *PipelineCache) Descriptor(id CachedPipelineId) *RenderPipelineDescriptor {
	if int(id) < 0 || int(id) >= len(c.pipelines) {
		return nil
	}
	return c.pipelines[id].descriptor
}

// Err returns the creation error of a failed pipeline.
func (c *PipelineCache) Err(id CachedPipelineId) error {
	if int(id) < 0 || int(id) >= len(c.pipelines) {
		return nil
	}
	return c.pipelines[id].err
}

func (c *PipelineCache) Len() int {
	return len(c.pipelines)
}

func (c *PipelineCache) createPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error) {
	vertex, err := c.shaderModule(desc.Vertex.Shader)
	if err != nil {
		return nil, err
	}
	var fragment ShaderModule
	if desc.Fragment != nil {
		fragment, err = c.shaderModule(desc.Fragment.Shader)
		if err != nil {
			return nil, err
		}
	}
	return c.device.CreateRenderPipeline(desc, vertex, fragment)
}

func (c *PipelineCache) shaderModule(handle ShaderHandle) (ShaderModule, error) {
	if m, ok := c.modules[handle]; ok {
		return m, nil
	}
	source, ok := c.shaders[handle]
	if !ok {
		return nil, fmt.Errorf("shader %d: %w", handle, ErrUnknownShader)
	}
	if c.Validate != nil {
		if err := c.Validate(source); err != nil {
			return nil, fmt.Errorf("shader %d: %w", handle, err)
		}
	}
	m, err := c.device.CreateShaderModule(&ShaderModuleDescriptor{
		Label: fmt.Sprintf("shader %d", handle),
		Code:  source,
	})
	if err != nil {
		return nil, fmt.Errorf("shader %d: %w", handle, err)
	}
	c.modules[handle] = m
	return m, nil
}
