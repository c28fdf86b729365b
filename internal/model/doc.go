// Package model defines the records passed between pipeline stages.
package model
