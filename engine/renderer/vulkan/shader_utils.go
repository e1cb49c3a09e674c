package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/kiln/engine/assets/loaders"
	"github.com/spaghettifunk/kiln/engine/renderer"
)

// CreateShaderModule wraps a SPIR-V blob.
func (d *Driver) CreateShaderModule(code []byte) (renderer.ShaderModule, error) {
	if len(code) == 0 {
		return 0, errors.New("empty shader module")
	}
	words, err := loaders.BytesToBytecode(code)
	if err != nil {
		return 0, err
	}

	moduleCreateInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}
	var module vk.ShaderModule
	if err := check("vkCreateShaderModule", vk.CreateShaderModule(d.device, &moduleCreateInfo, nil, &module)); err != nil {
		return 0, err
	}
	return renderer.ShaderModule(d.shaderModules.add(module)), nil
}

func (d *Driver) DestroyShaderModule(module renderer.ShaderModule) {
	if m, ok := d.shaderModules.remove(uint64(module)); ok {
		vk.DestroyShaderModule(d.device, m, nil)
	}
}

func shaderStage(stage vk.ShaderStageFlagBits, module vk.ShaderModule) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  VulkanSafeString("main"),
	}
}
