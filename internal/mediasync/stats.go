package mediasync

// KindStats tallies one media kind for one camera.
type KindStats struct {
	// Total counts every segment listed, before any filtering.
	Total    int
	Existing int
	New      int
	// Failed includes TimedOut.
	Failed           int
	TimedOut         int
	SkippedOld       int
	MissingTimestamp int
}

// Add accumulates other into s.
func (s *KindStats) Add(other KindStats) {
	s.Total += other.Total
	s.Existing += other.Existing
	s.New += other.New
	s.Failed += other.Failed
	s.TimedOut += other.TimedOut
	s.SkippedOld += other.SkippedOld
	s.MissingTimestamp += other.MissingTimestamp
}

// CameraStats holds both kinds for one camera.
type CameraStats struct {
	Videos KindStats
	Images KindStats
}

// Add accumulates other into c.
func (c *CameraStats) Add(other CameraStats) {
	c.Videos.Add(other.Videos)
	c.Images.Add(other.Images)
}

// Combined sums both kinds.
func (c CameraStats) Combined() KindStats {
	out := c.Videos
	out.Add(c.Images)
	return out
}
