// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package selector multiplexes many non-blocking channels from one goroutine.
//
// Channels are registered with an interest set and receive a SelectionKey.
// Select waits until at least one registered channel is ready for an
// operation in its interest set, adds the ready keys to the selected set and
// returns how many keys were added. The caller walks SelectedKeys, acts on
// each ready key and removes it; keys that are not removed stay selected.
package selector
