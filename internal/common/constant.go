// Package common contains shared constants and sentinel errors used across
// gallery components.
package common

// PackageFileExtension is the only archive extension accepted on submit.
// Comparison is case-insensitive.
const PackageFileExtension = ".nupkg"
