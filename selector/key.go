// File: selector/key.go
// Author: momentics <momentics@gmail.com>

package selector

import (
	"github.com/momentics/hioload-nio/api"
)

// SelectionKey ties a channel to a selector.
type SelectionKey struct {
	sel        *Selector
	ch         api.Selectable
	fd         int
	interest   api.Op
	ready      api.Op
	attachment any
	valid      bool
}

// Channel returns the registered channel.
func (k *SelectionKey) Channel() api.Selectable { return k.ch }

// Selector returns the owning selector.
func (k *SelectionKey) Selector() *Selector { return k.sel }

// Interest returns the interest set.
func (k *SelectionKey) Interest() api.Op {
	k.sel.mu.Lock()
	defer k.sel.mu.Unlock()
	return k.interest
}

// SetInterest replaces the interest set.
func (k *SelectionKey) SetInterest(ops api.Op) error {
	return k.sel.setInterest(k, ops)
}

// Ready returns the operations found ready by the last Select.
func (k *SelectionKey) Ready() api.Op {
	k.sel.mu.Lock()
	defer k.sel.mu.Unlock()
	return k.ready
}

func (k *SelectionKey) IsReadable() bool    { return k.Ready()&api.OpRead != 0 }
func (k *SelectionKey) IsWritable() bool    { return k.Ready()&api.OpWrite != 0 }
func (k *SelectionKey) IsAcceptable() bool  { return k.Ready()&api.OpAccept != 0 }
func (k *SelectionKey) IsConnectable() bool { return k.Ready()&api.OpConnect != 0 }

// Attachment returns the attached object.
func (k *SelectionKey) Attachment() any {
	k.sel.mu.Lock()
	defer k.sel.mu.Unlock()
	return k.attachment
}

// Attach replaces the attachment and returns the previous one.
func (k *SelectionKey) Attach(v any) any {
	k.sel.mu.Lock()
	defer k.sel.mu.Unlock()
	prev := k.attachment
	k.attachment = v
	return prev
}

// Cancel deregisters the channel. The key is removed from the selected set
// at the next Select.
func (k *SelectionKey) Cancel() {
	k.sel.cancel(k)
}

// Valid reports whether the key is still registered.
func (k *SelectionKey) Valid() bool {
	k.sel.mu.Lock()
	defer k.sel.mu.Unlock()
	return k.valid
}

// KeyIterator walks the selected set in readiness order.
type KeyIterator struct {
	sel *Selector
	pos int
	cur *SelectionKey
}

// Next advances to the next selected key.
func (it *KeyIterator) Next() bool {
	it.sel.mu.Lock()
	defer it.sel.mu.Unlock()
	if it.pos >= it.sel.selected.Length() {
		it.cur = nil
		return false
	}
	it.cur = it.sel.selected.Get(it.pos).(*SelectionKey)
	it.pos++
	return true
}

// Key returns the current key.
func (it *KeyIterator) Key() *SelectionKey { return it.cur }

// Remove drops the current key from the selected set.
func (it *KeyIterator) Remove() {
	if it.cur == nil {
		return
	}
	it.sel.mu.Lock()
	defer it.sel.mu.Unlock()
	it.pos--
	it.sel.removeAt(it.pos)
	it.cur = nil
}
