package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

func (d *Driver) CreatePipelineLayout(setLayouts []renderer.DescriptorSetLayout) (renderer.PipelineLayout, error) {
	layouts := make([]vk.DescriptorSetLayout, 0, len(setLayouts))
	for _, id := range setLayouts {
		layout, ok := d.setLayouts.get(uint64(id))
		if !ok {
			return 0, errors.New("unknown descriptor set layout")
		}
		layouts = append(layouts, layout)
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}
	var layout vk.PipelineLayout
	if err := check("vkCreatePipelineLayout", vk.CreatePipelineLayout(d.device, &pipelineLayoutCreateInfo, nil, &layout)); err != nil {
		return 0, err
	}
	return renderer.PipelineLayout(d.pipelineLayouts.add(layout)), nil
}

func (d *Driver) DestroyPipelineLayout(layout renderer.PipelineLayout) {
	if l, ok := d.pipelineLayouts.remove(uint64(layout)); ok {
		vk.DestroyPipelineLayout(d.device, l, nil)
	}
}

// CreateGraphicsPipeline builds a pipeline for dynamic rendering. Viewport,
// scissor and the states in desc.DynamicStates are set at record time.
func (d *Driver) CreateGraphicsPipeline(desc renderer.PipelineDesc) (renderer.Pipeline, error) {
	vert, ok := d.shaderModules.get(uint64(desc.VertexShader))
	if !ok {
		return 0, errors.New("unknown vertex shader module")
	}
	frag, ok := d.shaderModules.get(uint64(desc.FragmentShader))
	if !ok {
		return 0, errors.New("unknown fragment shader module")
	}
	layout, ok := d.pipelineLayouts.get(uint64(desc.Layout))
	if !ok {
		return 0, errors.New("unknown pipeline layout")
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		shaderStage(vk.ShaderStageVertexBit, vert),
		shaderStage(vk.ShaderStageFragmentBit, frag),
	}

	// Counts only; the rectangles come from vkCmdSetViewport and vkCmdSetScissor.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if desc.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOp(desc.DepthCompare)
	}
	if desc.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := make([]vk.DynamicState, len(desc.DynamicStates))
	for i, s := range desc.DynamicStates {
		dynamicStates[i] = vk.DynamicState(s)
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    desc.VertexStride,
		InputRate: vk.VertexInputRateVertex,
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(desc.Attributes))
	for i, a := range desc.Attributes {
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  0,
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		}
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	renderingCreateInfo := vk.PipelineRenderingCreateInfo{
		SType:                   vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    1,
		PColorAttachmentFormats: []vk.Format{vk.Format(desc.ColorFormat)},
		DepthAttachmentFormat:   vk.Format(desc.DepthFormat),
		StencilAttachmentFormat: vk.FormatUndefined,
	}
	renderingRef, _ := renderingCreateInfo.PassRef()
	defer renderingCreateInfo.Free()

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafe.Pointer(renderingRef),
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := check("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
		d.device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, nil, pipelines)); err != nil {
		return 0, err
	}

	core.LogDebug("Graphics pipeline created!")
	return renderer.Pipeline(d.pipelines.add(pipelines[0])), nil
}

func (d *Driver) DestroyPipeline(pipeline renderer.Pipeline) {
	if p, ok := d.pipelines.remove(uint64(pipeline)); ok {
		vk.DestroyPipeline(d.device, p, nil)
	}
}
