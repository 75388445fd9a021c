//go:build wgpu

package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Verify that WebGPU implements Device.
var _ Device = (*WebGPU)(nil)

const workgroupSize = 256

// WebGPU is the accelerator device backed by a WebGPU compute queue.
type WebGPU struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu        sync.RWMutex
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
}

// NewWebGPU acquires a high-performance adapter and device queue.
// Returns an error when no WebGPU implementation is available.
func NewWebGPU() (dev *WebGPU, err error) {
	// The native library panics instead of erroring when absent.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("wgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, aerr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if aerr != nil {
		instance.Release()
		return nil, fmt.Errorf("wgpu: failed to request adapter: %w", aerr)
	}
	device, derr := adapter.RequestDevice(nil)
	if derr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("wgpu: failed to request device: %w", derr)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("wgpu: failed to get queue")
	}
	return &WebGPU{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     queue,
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
	}, nil
}

// Name returns the device name.
func (w *WebGPU) Name() string { return "webgpu" }

// Release frees the adapter and device.
func (w *WebGPU) Release() {
	w.device.Release()
	w.adapter.Release()
	w.instance.Release()
}

type wgpuBuffer struct {
	buf  *wgpu.Buffer
	size int
}

func (b *wgpuBuffer) Size() int { return b.size }

func (b *wgpuBuffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// Alloc returns an uninitialized storage buffer of n bytes.
func (w *WebGPU) Alloc(n int) Buffer {
	buf := w.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  uint64(n),
	})
	return &wgpuBuffer{buf: buf, size: n}
}

// Upload copies host bytes into a device buffer.
func (w *WebGPU) Upload(dst Buffer, src []byte) {
	w.queue.WriteBuffer(dst.(*wgpuBuffer).buf, 0, src)
}

// Download copies device bytes back to host memory through a staging
// buffer, since storage buffers cannot be mapped directly.
func (w *WebGPU) Download(dst []byte, src Buffer) {
	size := uint64(len(dst))
	staging := w.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := w.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src.(*wgpuBuffer).buf, 0, staging, 0, size)
	w.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(w.device, wgpu.MapModeRead, 0, size); err != nil {
		panic(fmt.Sprintf("wgpu: failed to map staging buffer: %v", err))
	}
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size)
	copy(dst, mapped)
	staging.Unmap()
}

// Copy copies n bytes between device buffers.
func (w *WebGPU) Copy(dst, src Buffer, n int) {
	encoder := w.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src.(*wgpuBuffer).buf, 0, dst.(*wgpuBuffer).buf, 0, uint64(n))
	w.queue.Submit(encoder.Finish(nil))
}

func (w *WebGPU) getPipeline(name, code string) *wgpu.ComputePipeline {
	w.mu.RLock()
	if p, ok := w.pipelines[name]; ok {
		w.mu.RUnlock()
		return p
	}
	w.mu.RUnlock()

	shader := w.device.CreateShaderModuleWGSL(code)
	pipeline := w.device.CreateComputePipelineSimple(nil, shader, "main")

	w.mu.Lock()
	w.shaders[name] = shader
	w.pipelines[name] = pipeline
	w.mu.Unlock()
	return pipeline
}

// runLinear dispatches a 1D kernel over n elements with the given buffer
// bindings and a 16-byte params uniform.
func (w *WebGPU) runLinear(name, code string, n int, params []byte, bufs ...*wgpuBuffer) {
	pipeline := w.getPipeline(name, code)

	uniform := w.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             16,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(uniform.GetMappedRange(0, 16)), 16)
	copy(mapped, params)
	uniform.Unmap()
	defer uniform.Release()

	entries := make([]wgpu.BindGroupEntry, 0, len(bufs)+1)
	for i, b := range bufs {
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), b.buf, 0, uint64(b.size)))
	}
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(bufs)), uniform, 0, 16))

	bindGroup := w.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := w.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(uint32((n+workgroupSize-1)/workgroupSize), 1, 1)
	pass.End()
	w.queue.Submit(encoder.Finish(nil))
}

func linearParams(n int, alpha float32) []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:4], uint32(n))
	binary.LittleEndian.PutUint32(p[4:8], math.Float32bits(alpha))
	return p
}

// Axpy computes y += alpha*x.
func (w *WebGPU) Axpy(n int, alpha float32, x, y Buffer) {
	w.runLinear("axpy", axpyShader, n, linearParams(n, alpha), x.(*wgpuBuffer), y.(*wgpuBuffer))
}

// Scal computes x *= alpha.
func (w *WebGPU) Scal(n int, alpha float32, x Buffer) {
	w.runLinear("scal", scalShader, n, linearParams(n, alpha), x.(*wgpuBuffer))
}

// Mul computes y *= x.
func (w *WebGPU) Mul(n int, x, y Buffer) {
	w.runLinear("axmy", axmyShader, n, linearParams(n, 0), x.(*wgpuBuffer), y.(*wgpuBuffer))
}

// Div computes y /= x.
func (w *WebGPU) Div(n int, x, y Buffer) {
	w.runLinear("axdy", axdyShader, n, linearParams(n, 0), x.(*wgpuBuffer), y.(*wgpuBuffer))
}

// Gemm computes c = a·b on the device, row major.
func (w *WebGPU) Gemm(m, k, n int, a, b, c Buffer) {
	pipeline := w.getPipeline("gemm", gemmShader)

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))
	binary.LittleEndian.PutUint32(params[8:12], uint32(n))
	uniform := w.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             16,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(uniform.GetMappedRange(0, 16)), 16)
	copy(mapped, params)
	uniform.Unmap()
	defer uniform.Release()

	ab, bb, cb := a.(*wgpuBuffer), b.(*wgpuBuffer), c.(*wgpuBuffer)
	bindGroup := w.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, ab.buf, 0, uint64(ab.size)),
		wgpu.BufferBindingEntry(1, bb.buf, 0, uint64(bb.size)),
		wgpu.BufferBindingEntry(2, cb.buf, 0, uint64(cb.size)),
		wgpu.BufferBindingEntry(3, uniform, 0, 16),
	})
	defer bindGroup.Release()

	encoder := w.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(uint32((n+15)/16), uint32((m+15)/16), 1)
	pass.End()
	w.queue.Submit(encoder.Finish(nil))
}
