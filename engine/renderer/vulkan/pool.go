package vulkan

import "sync"

type LockGroup string

const (
	BufferManagement          LockGroup = "buffer_management"
	CommandBufferManagement   LockGroup = "command_buffer_management"
	DescriptorManagement      LockGroup = "descriptor_management"
	PipelineManagement        LockGroup = "pipeline_management"
	SwapchainManagement       LockGroup = "swapchain_management"
	SynchronizationManagement LockGroup = "synchronization_management"
)

// VulkanLockPool serializes access to externally synchronized Vulkan objects.
// Queues are keyed by family index.
type VulkanLockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex // Protects both maps

	queueMutexes map[uint32]*sync.Mutex
}

var lockPool = NewVulkanLockPool()

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) groupLock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	l, ok := vs.locks[group]
	if !ok {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	return l
}

func (vs *VulkanLockPool) queueLock(index uint32) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	l, ok := vs.queueMutexes[index]
	if !ok {
		l = &sync.Mutex{}
		vs.queueMutexes[index] = l
	}
	return l
}

func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.groupLock(group)
	l.Lock()
	defer l.Unlock()

	return fn()
}

func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	vs.queueLock(index)
}

// SafeQueueCall runs fn while holding the lock of the queue family. The pool
// lock itself is released before fn runs.
func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	l := vs.queueLock(queueFamilyIndex)
	l.Lock()
	defer l.Unlock()

	return fn()
}
