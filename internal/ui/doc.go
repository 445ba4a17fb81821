// Package ui implements the interactive terminal views using bubbletea's Elm architecture.
//
// Two programs are provided:
//  1. [OnboardModel] : the four-step onboarding wizard, saving the profile on finish
//  2. [LearnModel] : the learning view, optionally generating the curriculum first
//
// Both models implement bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Generation progress flows through a channel from the PathEngine, and explanation and video lookups run as commands
// so the view never blocks on the network.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, enter, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
