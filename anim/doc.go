// Package anim is a small vector animation runtime.
//
// An asset is a YAML document holding one or more artboards. Each artboard
// owns shapes, keyframed linear animations and state machines that pick
// which animation plays. A decoded File is immutable and may back any number
// of Instances; an Instance holds the mutable playback state for one
// drawing surface and must be released with Cleanup.
//
//	f, err := anim.Decode(data)
//	inst, err := anim.NewInstance(f, anim.Options{
//		StateMachines: []string{"State Machine 1"},
//		Canvas:        c,
//		Autoplay:      true,
//	})
//	defer inst.Cleanup()
package anim
