// Package layout decides when the proposal information panel sticks under the navbar.
package layout

// PinSlack is added to the navbar height so the panel pins slightly before
// it touches the navbar.
const PinSlack = 4

// Rect is the measured bounding box of the panel, relative to the viewport.
type Rect struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height" validate:"gte=0"`
}

// Input is one scroll or resize observation.
type Input struct {
	ScrollY      float64 `json:"scrollY" validate:"gte=0"`
	WindowHeight float64 `json:"windowHeight" validate:"gte=0"`
	WindowWidth  float64 `json:"windowWidth" validate:"gte=0"`
	NavbarHeight float64 `json:"navbarHeight" validate:"gte=0"`
	Panel        Rect    `json:"panel"`
	ParentWidth  float64 `json:"parentWidth" validate:"gte=0"`
}

// State is the panel position carried between observations.
// PointStatic is the scroll offset at which the panel was pinned.
type State struct {
	Pinned      bool    `json:"pinned"`
	PointStatic float64 `json:"pointStatic"`
	Width       float64 `json:"width"`
	Top         float64 `json:"top"`
	WindowWidth float64 `json:"windowWidth"`
}

// Decide computes the next panel state.
//
// An unpinned panel pins when the window is taller than navbar plus panel
// and the panel top has scrolled within PinSlack of the navbar. A pinned panel
// unpins once the scroll offset goes back above the point where it pinned,
// and follows the parent width when the window width changes.
func Decide(prev State, in Input) State {
	if !prev.Pinned {
		if in.WindowHeight > in.NavbarHeight+in.Panel.Height && in.Panel.Top < in.NavbarHeight+PinSlack {
			return State{
				Pinned:      true,
				PointStatic: in.ScrollY,
				Width:       in.ParentWidth,
				Top:         in.NavbarHeight,
				WindowWidth: in.WindowWidth,
			}
		}
		return State{}
	}

	if prev.PointStatic > in.ScrollY {
		return State{}
	}

	next := prev
	if prev.WindowWidth != in.WindowWidth {
		next.Width = in.ParentWidth
		next.WindowWidth = in.WindowWidth
	}
	return next
}
