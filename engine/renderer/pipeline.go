package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/assets"
	"github.com/spaghettifunk/kiln/engine/geometry"
)

var ErrFormatChanged = errors.New("swapchain color format changed; the pipeline was built for another format")

// GraphicsPipeline is the single fixed pipeline the renderer draws with.
type GraphicsPipeline struct {
	Layout      PipelineLayout
	Handle      Pipeline
	ColorFormat Format
	DepthFormat Format
}

var vertexAttributes = []VertexAttribute{
	{Location: 0, Format: FormatR32G32B32Sfloat, Offset: 0},  // position
	{Location: 1, Format: FormatR32G32B32Sfloat, Offset: 12}, // normal
	{Location: 2, Format: FormatR32G32B32Sfloat, Offset: 24}, // color
}

var pipelineDynamicStates = []DynamicState{
	DynamicStateViewport,
	DynamicStateScissor,
	DynamicStateCullMode,
	DynamicStateFrontFace,
	DynamicStatePrimitiveTopology,
}

func loadShaderModule(ctx *DeviceContext, source assets.ByteSource, path string) (ShaderModule, error) {
	code, err := source.LoadBytes(path)
	if err != nil {
		return 0, errors.Wrapf(err, "load shader %s", path)
	}
	module, err := ctx.Driver.CreateShaderModule(code)
	if err != nil {
		return 0, errors.Wrapf(err, "create shader module %s", path)
	}
	return module, nil
}

// CreateGraphicsPipeline builds the pipeline for the given attachment formats.
// The shader modules are only needed during creation.
func CreateGraphicsPipeline(ctx *DeviceContext, source assets.ByteSource, vertexPath, fragmentPath string,
	setLayout DescriptorSetLayout, colorFormat, depthFormat Format) (*GraphicsPipeline, error) {
	vert, err := loadShaderModule(ctx, source, vertexPath)
	if err != nil {
		return nil, err
	}
	defer ctx.Driver.DestroyShaderModule(vert)

	frag, err := loadShaderModule(ctx, source, fragmentPath)
	if err != nil {
		return nil, err
	}
	defer ctx.Driver.DestroyShaderModule(frag)

	layout, err := ctx.Driver.CreatePipelineLayout([]DescriptorSetLayout{setLayout})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}

	handle, err := ctx.Driver.CreateGraphicsPipeline(PipelineDesc{
		VertexShader:   vert,
		FragmentShader: frag,
		Layout:         layout,
		ColorFormat:    colorFormat,
		DepthFormat:    depthFormat,
		VertexStride:   geometry.VertexSize,
		Attributes:     vertexAttributes,
		DepthTest:      true,
		DepthWrite:     true,
		DepthCompare:   CompareOpLess,
		DynamicStates:  pipelineDynamicStates,
	})
	if err != nil {
		ctx.Driver.DestroyPipelineLayout(layout)
		return nil, errors.Wrap(err, "create graphics pipeline")
	}

	return &GraphicsPipeline{
		Layout:      layout,
		Handle:      handle,
		ColorFormat: colorFormat,
		DepthFormat: depthFormat,
	}, nil
}

// CheckFormat reports ErrFormatChanged if a rebuilt swapchain no longer matches.
func (p *GraphicsPipeline) CheckFormat(colorFormat Format) error {
	if colorFormat != p.ColorFormat {
		return errors.Wrapf(ErrFormatChanged, "pipeline format %d, swapchain format %d", p.ColorFormat, colorFormat)
	}
	return nil
}

func (p *GraphicsPipeline) Destroy(ctx *DeviceContext) {
	destroyIf(p.Handle, ctx.Driver.DestroyPipeline)
	destroyIf(p.Layout, ctx.Driver.DestroyPipelineLayout)
	p.Handle = 0
	p.Layout = 0
}
