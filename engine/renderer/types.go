package renderer

// Opaque handles issued by a Driver. The zero value is the null handle.
type (
	Instance            uint64
	Surface             uint64
	PhysicalDevice      uint64
	Device              uint64
	Queue               uint64
	Swapchain           uint64
	Image               uint64
	ImageView           uint64
	Buffer              uint64
	Allocation          uint64
	Fence               uint64
	Semaphore           uint64
	CommandPool         uint64
	CommandBuffer       uint64
	ShaderModule        uint64
	DescriptorSetLayout uint64
	DescriptorPool      uint64
	DescriptorSet       uint64
	PipelineLayout      uint64
	Pipeline            uint64
)

// Unbounded is the timeout for a wait that never gives up.
const Unbounded uint64 = ^uint64(0)

// Result mirrors VkResult.
type Result int32

const (
	Success          Result = 0
	NotReady         Result = 1
	Timeout          Result = 2
	Suboptimal       Result = 1000001003
	ErrorDeviceLost  Result = -4
	ErrorSurfaceLost Result = -1000000000
	ErrorOutOfDate   Result = -1000001004
)

// Stale reports whether the presentation engine asked for a new swapchain.
func (r Result) Stale() bool {
	return r == Suboptimal || r == ErrorOutOfDate
}

// Format mirrors VkFormat. Only the formats the engine picks between are named.
type Format int32

const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Srgb       Format = 43
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatA8B8G8R8SrgbPack32 Format = 57
	FormatR32G32B32Sfloat    Format = 106
	FormatD32Sfloat          Format = 126
	FormatD24UnormS8Uint     Format = 129
	FormatD32SfloatS8Uint    Format = 130
)

type ColorSpace int32

const ColorSpaceSrgbNonlinear ColorSpace = 0

type PresentMode int32

const (
	PresentModeImmediate PresentMode = 0
	PresentModeMailbox   PresentMode = 1
	PresentModeFifo      PresentMode = 2
)

type ImageLayout int32

const (
	ImageLayoutUndefined              ImageLayout = 0
	ImageLayoutColorAttachmentOptimal ImageLayout = 2
	ImageLayoutDepthAttachmentOptimal ImageLayout = 1000241000
	ImageLayoutPresentSrc             ImageLayout = 1000001002
)

type ImageAspect uint32

const (
	ImageAspectColor ImageAspect = 0x1
	ImageAspectDepth ImageAspect = 0x2
)

type ImageUsage uint32

const (
	ImageUsageColorAttachment        ImageUsage = 0x10
	ImageUsageDepthStencilAttachment ImageUsage = 0x20
)

type Access uint32

const (
	AccessNone                        Access = 0
	AccessColorAttachmentWrite        Access = 0x100
	AccessDepthStencilAttachmentRead  Access = 0x200
	AccessDepthStencilAttachmentWrite Access = 0x400
)

type PipelineStage uint32

const (
	StageTopOfPipe             PipelineStage = 0x1
	StageEarlyFragmentTests    PipelineStage = 0x100
	StageLateFragmentTests     PipelineStage = 0x200
	StageColorAttachmentOutput PipelineStage = 0x400
	StageTransfer              PipelineStage = 0x1000
	StageBottomOfPipe          PipelineStage = 0x2000
)

type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 0x1
	BufferUsageTransferDst BufferUsage = 0x2
	BufferUsageUniform     BufferUsage = 0x10
	BufferUsageIndex       BufferUsage = 0x40
	BufferUsageVertex      BufferUsage = 0x80
)

// MemoryUsage picks the memory class of an allocation.
type MemoryUsage int

const (
	// MemoryGPUOnly is device-local and not host visible.
	MemoryGPUOnly MemoryUsage = iota
	// MemoryCPUOnly is host visible and coherent. Used for staging.
	MemoryCPUOnly
	// MemoryCPUToGPU is host visible and coherent, and read by the device every frame.
	MemoryCPUToGPU
)

func (m MemoryUsage) HostVisible() bool {
	return m == MemoryCPUOnly || m == MemoryCPUToGPU
}

type CullMode uint32

const (
	CullModeNone  CullMode = 0
	CullModeFront CullMode = 0x1
	CullModeBack  CullMode = 0x2
)

type FrontFace int32

const (
	FrontFaceCounterClockwise FrontFace = 0
	FrontFaceClockwise        FrontFace = 1
)

type PrimitiveTopology int32

const PrimitiveTopologyTriangleList PrimitiveTopology = 3

type CompareOp int32

const CompareOpLess CompareOp = 1

type DynamicState int32

const (
	DynamicStateViewport          DynamicState = 0
	DynamicStateScissor           DynamicState = 1
	DynamicStateCullMode          DynamicState = 1000267000
	DynamicStateFrontFace         DynamicState = 1000267001
	DynamicStatePrimitiveTopology DynamicState = 1000267002
)

type DescriptorType int32

const DescriptorTypeUniformBufferDynamic DescriptorType = 8

type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x1
	ShaderStageFragment ShaderStage = 0x10
)

type Extent2D struct {
	Width, Height uint32
}

func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

type Rect2D struct {
	X, Y   int32
	Extent Extent2D
}

// DeviceInfo is what the engine needs to know about the selected device.
type DeviceInfo struct {
	Name                            string
	APIVersion                      uint32
	MinUniformBufferOffsetAlignment uint64
	QueueFamilyIndex                uint32
}

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// SurfaceCapabilities mirrors VkSurfaceCapabilitiesKHR.
type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
}

// SurfaceSupport is everything a swapchain build needs from the surface.
type SurfaceSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

type InstanceDesc struct {
	ApplicationName string
	Validation      bool
}

type SwapchainDesc struct {
	Surface     Surface
	MinImages   uint32
	Format      SurfaceFormat
	Extent      Extent2D
	PresentMode PresentMode
	Old         Swapchain
}

type ImageDesc struct {
	Extent Extent2D
	Format Format
	Usage  ImageUsage
	Memory MemoryUsage
}

// ImageBarrier is one explicit layout transition with both halves of the
// dependency spelled out.
type ImageBarrier struct {
	Image     Image
	Aspect    ImageAspect
	OldLayout ImageLayout
	NewLayout ImageLayout
	SrcAccess Access
	DstAccess Access
	SrcStage  PipelineStage
	DstStage  PipelineStage
}

type ClearColor struct {
	R, G, B, A float32
}

// RenderingInfo begins dynamic rendering into one color and one depth attachment,
// both cleared on load.
type RenderingInfo struct {
	Area        Rect2D
	ColorView   ImageView
	ColorLayout ImageLayout
	ClearColor  ClearColor
	DepthView   ImageView
	DepthLayout ImageLayout
	ClearDepth  float32
}

type SubmitInfo struct {
	CommandBuffer CommandBuffer
	Wait          Semaphore
	WaitStage     PipelineStage
	Signal        Semaphore
	Fence         Fence
}

type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Stages  ShaderStage
}

type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

// PipelineDesc is the fixed-function state of a graphics pipeline built for
// dynamic rendering.
type PipelineDesc struct {
	VertexShader   ShaderModule
	FragmentShader ShaderModule
	Layout         PipelineLayout
	ColorFormat    Format
	DepthFormat    Format
	VertexStride   uint32
	Attributes     []VertexAttribute
	DepthTest      bool
	DepthWrite     bool
	DepthCompare   CompareOp
	DynamicStates  []DynamicState
}
