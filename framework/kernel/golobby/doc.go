// Package golobby is a component kernel backed by github.com/golobby/container.
//
// It accepts the same ComponentRegistration descriptors, facilities and
// release policies as the default kernel, so a locator can run on either:
//
//	l, err := locator.NewWithKernel(golobby.New())
package golobby
