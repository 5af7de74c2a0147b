package core

const AVG_COUNT uint8 = 30

// Metrics keeps a rolling frame-time average and a frames-per-second counter
// for the run loop that drives the renderer.
type Metrics struct {
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Update records one frame that took frameElapsedTime seconds.
func (m *Metrics) Update(frameElapsedTime float64) {
	// Calculate frame ms average
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		sum := 0.0
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += m.msTimes[i]
		}
		m.msAvg = sum / float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	// Count all frames.
	m.frames++

	// Calculate frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS >= 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

