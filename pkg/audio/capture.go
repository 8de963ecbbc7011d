package audio

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/voxstream/voxstream/pkg/logging"
	"github.com/voxstream/voxstream/pkg/pipeliner"
)

// Capturer owns a single mono float32 capture device (spec §4.1). Its device
// callback is strictly producer-only: it copies the incoming block and
// pushes it onto a bounded FrameQueue, never blocking and never touching a
// transcription lock.
type Capturer struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	queue      *FrameQueue
	log        logging.Logger
	blocksize  int
	sampleRate int

	mu      sync.Mutex
	stopped bool
}

// NewCapturer opens the default capture device at sampleRate, mono, float32,
// with the given blocksize in samples, feeding a FrameQueue of the given
// capacity. It returns a pipeliner.Error of KindDevice if the device cannot
// be opened.
func NewCapturer(sampleRate, blocksize, queueCapacity int, log logging.Logger) (*Capturer, error) {
	if log == nil {
		log = logging.NoOp{}
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, pipeliner.Wrap(pipeliner.KindDevice, "initialize audio context", err)
	}

	c := &Capturer{
		ctx:        mctx,
		queue:      NewFrameQueue(queueCapacity),
		log:        log,
		blocksize:  blocksize,
		sampleRate: sampleRate,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(blocksize)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pSamples []byte, frameCount uint32) {
			c.onSamples(pSamples)
		},
		Stop: func() {
			c.log.Warn("capture device stopped by driver")
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		return nil, pipeliner.Wrap(pipeliner.KindDevice, "initialize capture device", err)
	}
	c.device = device

	return c, nil
}

// Start begins capture. The realtime callback pushes copied frames into the
// internal queue until Stop is called.
func (c *Capturer) Start() error {
	if err := c.device.Start(); err != nil {
		return pipeliner.Wrap(pipeliner.KindDevice, "start capture device", err)
	}
	return nil
}

// onSamples runs on the realtime audio thread: decode, copy, enqueue, done.
// It must never block or allocate beyond the per-frame copy.
func (c *Capturer) onSamples(pSamples []byte) {
	samples := bytesToFloat32(pSamples)
	if len(samples) == 0 {
		return
	}
	c.queue.Push(Frame(samples))
}

// Frames returns the bounded queue frames are pushed onto.
func (c *Capturer) Frames() *FrameQueue {
	return c.queue
}

// SampleRate returns the configured capture sample rate.
func (c *Capturer) SampleRate() int {
	return c.sampleRate
}

// Stop halts capture and releases the device and context. Safe to call more
// than once.
func (c *Capturer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true

	if c.device != nil {
		if c.device.IsStarted() {
			_ = c.device.Stop()
		}
		c.device.Uninit()
	}
	if c.ctx != nil {
		_ = c.ctx.Uninit()
	}
}

const float32ByteSize = 4

func bytesToFloat32(b []byte) []float32 {
	if len(b)%float32ByteSize != 0 {
		return nil
	}
	samples := make([]float32, len(b)/float32ByteSize)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(b[i*float32ByteSize:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
