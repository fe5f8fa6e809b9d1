// Package draft implements the small state containers behind every client-side
// store in backroom.
//
// # Overview
//
// A Store holds one plain state value. Reads return the last committed value;
// writes go through either a reducer (Update) or a draft recipe (Mutate):
//
//	store.Update(func(s State) State {
//		s.Count++ // s is a copy; maps and slices must be copied before editing
//		return s
//	})
//
//	store.Mutate(func(d *State) {
//		d.Items[0].Name = "renamed" // safe: d is a deep clone
//	})
//
// Reducers copy only the branches they change, which keeps updates cheap and
// means readers never see a half-applied edit. Mutate trades that for
// convenience: the store clones the whole state with the function supplied
// through WithClone and commits the clone once the recipe returns. The sidebar
// store edits its menu map this way.
//
// # Notifications
//
// Subscribers registered with Subscribe see every commit, in commit order and
// in registration order, one delivery at a time. An uncontended Update or
// Mutate returns only after its subscribers have run. A write made while a
// delivery is in progress, whether from a subscriber or another goroutine, is
// queued and delivered by the goroutine already delivering, so the last state
// a subscriber sees is always the committed one.
//
// Subscribers may write to the store again. Reducers and recipes may not: the
// write lock is held while they run, so a nested write on the same store
// deadlocks.
//
// # Persistence
//
// The Persist option binds a store to one slot in kv.Storage. On creation the
// slot is decoded (TOML) and merged over the initial state; after every commit
// the partialized state is encoded back. Storage failures never reach the
// caller. They go to the onError sink supplied with the option, which the app
// wires to its logger.
package draft
