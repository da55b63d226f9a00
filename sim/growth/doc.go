// Package growth implements space colonisation growth of tree skeletons.
//
// A Tree starts as a single root node and grows a vertical trunk, one step per
// tick, until it reaches its trunk height. From then on every tick pulls the
// tree's nodes towards the attraction points around its crown: each point
// within the growth radius of the trunk top pulls its nearest node, every
// pulled node sprouts a child in the average pull direction, and points that
// end up within the kill radius of any node are claimed by the tree.
//
// Several trees share one Pool through a Forest. A claimed point is
// invisible to every other tree, and claims are never undone. The number of
// points a tree may claim and the reach of its crown both grow with the soil
// moisture at its root.
package growth
