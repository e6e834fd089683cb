package helpers

import "settingsd/internal/hotplug"

// Names of the channel-following subsystems, in start order.
const (
	Displays       = "displays"
	Pointers       = "pointers"
	Keyboards      = "keyboards"
	Accessibility  = "accessibility"
	Shortcuts      = "shortcuts"
	KeyboardLayout = "keyboard-layout"
	Workspaces     = "workspaces"
)

// Catalog returns the channel subsystems in start order. The display helper
// is included only when withDisplays is set.
func Catalog(withDisplays bool) []Spec {
	specs := make([]Spec, 0, 7)
	if withDisplays {
		specs = append(specs, Spec{Name: Displays, Channel: "displays", Hotplug: hotplug.DisplayRules()})
	}
	return append(specs,
		Spec{Name: Pointers, Channel: "pointers", Hotplug: hotplug.PointerRules()},
		Spec{Name: Keyboards, Channel: "keyboards", Hotplug: hotplug.KeyboardRules()},
		Spec{Name: Accessibility, Channel: "accessibility"},
		Spec{Name: Shortcuts, Channel: "xfce4-keyboard-shortcuts"},
		Spec{Name: KeyboardLayout, Channel: "keyboard-layout"},
		Spec{Name: Workspaces, Channel: "xfwm4", Base: "/general"},
	)
}
