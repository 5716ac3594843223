package device

import "fmt"

// Profile maps a Kindle model to its screen resolution in pixels.
// Pages are resized to exactly this box and the generated EPUB declares
// the same dimensions in its fixed-layout viewport.
type Profile struct {
	Name   string
	Width  int
	Height int
}

// Profiles lists supported Kindle models in prompt display order.
var Profiles = []Profile{
	{Name: "Kindle Scribe", Width: 1860, Height: 2480},
	{Name: "Kindle Paperwhite 3/4/Voyage/Oasis", Width: 1072, Height: 1448},
	{Name: "Kindle Oasis 2/3", Width: 1264, Height: 1680},
	{Name: "Kindle Paperwhite 1/2", Width: 758, Height: 1024},
	{Name: "Kindle DX/DXG", Width: 824, Height: 1000},
	{Name: "Kindle", Width: 600, Height: 800},
	{Name: "Kindle Keyboard/Touch", Width: 600, Height: 800},
	{Name: "Kindle 2", Width: 600, Height: 670},
	{Name: "Kindle 1", Width: 600, Height: 670},
}

// DefaultProfile is the model preselected in the device prompt.
const DefaultProfile = "Kindle Paperwhite 3/4/Voyage/Oasis"

// Resolve returns the profile for the given model name.
func Resolve(name string) (Profile, error) {
	for _, p := range Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown device %q", name)
}

// Screen holds the resolved target resolution for one run. It is set once
// after device selection and read-only afterwards.
type Screen struct {
	Width  int
	Height int
}

// Screen returns the profile's resolution as a Screen value.
func (p Profile) Screen() Screen {
	return Screen{Width: p.Width, Height: p.Height}
}
