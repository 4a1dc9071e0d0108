// Package scoring turns research findings into the VIP score and influence
// tier stored with each guest.
package scoring
