package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/partview3d/partview/core"
)

// FrameUniforms matches the WGSL FrameData struct shared by every pipeline
// at group 0, binding 0.
type FrameUniforms struct {
	View   mgl32.Mat4
	Proj   mgl32.Mat4
	CamPos [4]float32
	// LightDir packs the direction in xyz and the ambient term in w.
	LightDir [4]float32
	// Params packs viewport width/height and the specular power.
	Params [4]float32
}

// ObjectUniforms matches WGSL ObjectData: the uniform mesh color.
type ObjectUniforms struct {
	Color [4]float32
}

// LineUniforms matches WGSL LineData: x is the width scale multiplied onto
// the per-vertex thickness attribute.
type LineUniforms struct {
	Params [4]float32
}

// GridUniforms matches WGSL GridData.
type GridUniforms struct {
	Color [4]float32
	// Params packs spacing and the X/Y line widths in pixels.
	Params [4]float32
}

func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

func float32Bytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

func billboardBytes(v []core.BillboardVertex) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*int(unsafe.Sizeof(v[0])))
}

func uint16Bytes(data []uint16) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*2)
}

// pad4 rounds data up to the 4-byte multiple queue writes require. Aligned
// slices pass through untouched; unaligned ones are copied, never mutated in
// place, because they may view caller-owned arrays.
func pad4(data []byte) []byte {
	rem := len(data) % 4
	if rem == 0 {
		return data
	}
	padded := make([]byte, len(data)+4-rem)
	copy(padded, data)
	return padded
}

// newBufferWith allocates a buffer sized to data (padded to 4 bytes, as
// required for index uploads) and uploads it.
func newBufferWith(ctx *Context, label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	data = pad4(data)
	buf, err := ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := ctx.Queue.WriteBuffer(buf, 0, data); err != nil {
			buf.Release()
			return nil, fmt.Errorf("upload %s: %w", label, err)
		}
	}
	return buf, nil
}
