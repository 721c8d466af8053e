package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// program is a linked shader program with cached uniform locations.
type program struct {
	id        uint32
	locations map[string]int32
}

func newProgram(vertexSrc, fragmentSrc string) (*program, error) {
	id, err := compileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, err
	}
	return &program{id: id, locations: make(map[string]int32)}, nil
}

func (p *program) use() { gl.UseProgram(p.id) }

func (p *program) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

func (p *program) setBool(name string, v bool) {
	var i int32
	if v {
		i = 1
	}
	gl.Uniform1i(p.location(name), i)
}

func (p *program) setInt(name string, v int32)       { gl.Uniform1i(p.location(name), v) }
func (p *program) setFloat(name string, v float32)   { gl.Uniform1f(p.location(name), v) }
func (p *program) setVec2(name string, v mgl32.Vec2) { gl.Uniform2f(p.location(name), v[0], v[1]) }
func (p *program) setVec3(name string, v mgl32.Vec3) { gl.Uniform3f(p.location(name), v[0], v[1], v[2]) }

func (p *program) setMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(p.location(name), 1, false, &m[0])
}

func (p *program) delete() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertexShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertexShader)
	fragmentShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragmentShader)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vertexShader)
	gl.AttachShader(prog, fragmentShader)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link effect program: %s", strings.TrimRight(log, "\x00"))
	}
	return prog, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile shader: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

// The effect program implements graphics.EffectParameters: vertex color,
// one texture, a directional light with an optional shadow map and linear
// fog. Depth only draws write the window depth into the red channel.
// With uLineThickness set, aNormal holds the point the line extends toward
// and the vertex is pushed sideways by half the thickness in pixels.
const effectVertexSrc = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec4 aColor;
layout(location = 2) in vec3 aNormal;
layout(location = 3) in vec2 aTexCoord;

uniform mat4 uWorld;
uniform mat4 uView;
uniform mat4 uProjection;
uniform mat4 uShadowViewProjection;
uniform float uLineThickness;
uniform vec2 uViewport;

out vec4 vColor;
out vec3 vNormal;
out vec2 vTexCoord;
out vec4 vShadowPos;
out float vViewDepth;

void main() {
    vec4 world = uWorld * vec4(aPosition, 1.0);
    vec4 viewPos = uView * world;
    gl_Position = uProjection * viewPos;
    vColor = aColor;
    vNormal = mat3(uWorld) * aNormal;
    vTexCoord = aTexCoord;
    vShadowPos = uShadowViewProjection * world;
    vViewDepth = -viewPos.z;

    if (uLineThickness > 0.0) {
        vec4 toward = uProjection * uView * uWorld * vec4(aNormal, 1.0);
        vec2 dir = (toward.xy / toward.w - gl_Position.xy / gl_Position.w) * uViewport;
        if (dot(dir, dir) > 0.0) {
            vec2 side = normalize(vec2(-dir.y, dir.x)) * uLineThickness / uViewport;
            gl_Position.xy += side * gl_Position.w;
        }
        vNormal = vec3(0.0);
    }
}
`

const effectFragmentSrc = `#version 410 core
in vec4 vColor;
in vec3 vNormal;
in vec2 vTexCoord;
in vec4 vShadowPos;
in float vViewDepth;

uniform bool uDepthOnly;
uniform vec3 uDiffuse;
uniform float uAlpha;
uniform bool uVertexColor;
uniform bool uHasTexture;
uniform sampler2D uTexture;

uniform bool uLighting;
uniform vec3 uAmbient;
uniform vec3 uLightDirection;
uniform vec3 uLightDiffuse;

uniform bool uShadow;
uniform sampler2D uShadowMap;

uniform bool uFog;
uniform vec3 uFogColor;
uniform float uFogStart;
uniform float uFogEnd;

out vec4 fragColor;

float shadowFactor() {
    vec3 p = vShadowPos.xyz / vShadowPos.w * 0.5 + 0.5;
    if (p.x < 0.0 || p.x > 1.0 || p.y < 0.0 || p.y > 1.0 || p.z > 1.0) {
        return 1.0;
    }
    return p.z > texture(uShadowMap, p.xy).r ? 0.0 : 1.0;
}

void main() {
    if (uDepthOnly) {
        fragColor = vec4(gl_FragCoord.z, 0.0, 0.0, 1.0);
        return;
    }
    vec4 color = vec4(uDiffuse, uAlpha);
    if (uVertexColor) {
        color *= vColor;
    }
    if (uHasTexture) {
        color *= texture(uTexture, vTexCoord);
    }
    if (uLighting) {
        float lit = uShadow ? shadowFactor() : 1.0;
        float ndl = max(dot(normalize(vNormal), -normalize(uLightDirection)), 0.0);
        color.rgb *= uAmbient + uLightDiffuse * ndl * lit;
    }
    if (uFog) {
        float f = clamp((vViewDepth - uFogStart) / max(uFogEnd - uFogStart, 0.0001), 0.0, 1.0);
        color.rgb = mix(color.rgb, uFogColor, f);
    }
    fragColor = color;
}
`
