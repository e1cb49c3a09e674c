//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderSources = []string{"triangle.vert", "triangle.frag"}

// Compiles the GLSL shaders under shaders/ to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

func buildShaders() error {
	for _, src := range shaderSources {
		out := fmt.Sprintf("%s.spv", src)
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withDir("shaders"), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the testbed binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/kiln", "."), withStream())
	return err
}
