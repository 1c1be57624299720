// Package assets embeds the GLSL sources the simulation ships with.
package assets

import "embed"

// Shaders holds shaders/nbody.comp, shaders/particle.vert and
// shaders/particle.frag.
//
//go:embed shaders/*
var Shaders embed.FS

// ShaderDir is the directory inside Shaders that holds the sources.
const ShaderDir = "shaders"
