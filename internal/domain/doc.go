// Package domain contains the core types of the notification delivery
// pipeline: event categories, notification events, the display call shape
// handed to the platform surface, and the permission states. Types here are
// plain data with validation; behavior lives in the pipeline packages.
package domain
