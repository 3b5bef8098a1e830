// Package mask obscures regions of an image so their content cannot be read
// back.
//
// Two styles are available. StyleMosaic averages square cells on a grid
// anchored at each region's top-left corner; StyleFill paints the region with
// one colour (a configured hex colour, or the region's mean). Both throw away
// everything but one colour per cell, and both are fixed points: masking an
// already masked image with the same regions returns identical pixels.
//
// Regions are validated before anything is drawn. A region with a
// non-positive size or lying entirely outside the image fails with an
// apperr.CodeInvalidRegion error; a region that is only partly outside is
// clipped. Overlapping regions are merged into their union first.
package mask
