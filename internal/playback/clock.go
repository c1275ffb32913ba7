// SPDX-License-Identifier: MIT
package playback

// Clock picks the cursor time from whichever source is playing.
type Clock struct {
	Reference Media
	User      Media
}

// Now returns the current cursor time. The reference position is used
// as-is; the user position is shifted by offset so it lines up with the
// shifted user series. It reports false when neither source is playing.
func (c Clock) Now(offset float64) (float64, bool) {
	if playing(c.Reference) {
		return c.Reference.CurrentTime(), true
	}
	if playing(c.User) {
		return c.User.CurrentTime() + offset, true
	}
	return 0, false
}

// Playing reports whether either source is playing.
func (c Clock) Playing() bool {
	return playing(c.Reference) || playing(c.User)
}

func playing(m Media) bool {
	return m != nil && !m.Paused()
}
