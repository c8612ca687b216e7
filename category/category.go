// Package category defines the closed set of semantic buckets detected
// objects are classified into, plus the keyword mapper used when the
// generative model is unavailable or ambiguous.
package category

// Category is one of six fixed semantic buckets. Other is the escape hatch
// for anything unrecognized; anchors are never created for it.
type Category int

const (
	Other Category = iota
	Fire
	Metal
	Earth
	Wood
	Water
)

// All lists the five real categories in matching order. Other is excluded on
// purpose: it is a fallback, never a match target.
var All = []Category{Fire, Metal, Earth, Wood, Water}

func (c Category) String() string {
	switch c {
	case Fire:
		return "Fire"
	case Metal:
		return "Metal"
	case Earth:
		return "Earth"
	case Wood:
		return "Wood"
	case Water:
		return "Water"
	default:
		return "Other"
	}
}

// Color returns the marker color for the category as RGBA in [0,1], in the
// order shader color uniforms take it.
func (c Category) Color() [4]float32 {
	switch c {
	case Fire:
		return [4]float32{0.91, 0.30, 0.24, 1}
	case Metal:
		return [4]float32{0.74, 0.76, 0.78, 1}
	case Earth:
		return [4]float32{0.72, 0.54, 0.35, 1}
	case Wood:
		return [4]float32{0.18, 0.60, 0.31, 1}
	case Water:
		return [4]float32{0.20, 0.47, 0.85, 1}
	default:
		return [4]float32{0.5, 0.5, 0.5, 1}
	}
}

// MeshAsset names the marker mesh loaded by the host renderer.
func (c Category) MeshAsset() string {
	switch c {
	case Fire:
		return "models/marker_fire.obj"
	case Metal:
		return "models/marker_metal.obj"
	case Earth:
		return "models/marker_earth.obj"
	case Wood:
		return "models/marker_wood.obj"
	case Water:
		return "models/marker_water.obj"
	default:
		return "models/marker_generic.obj"
	}
}

// TextureAsset names the marker texture loaded by the host renderer.
func (c Category) TextureAsset() string {
	switch c {
	case Fire:
		return "textures/marker_fire.png"
	case Metal:
		return "textures/marker_metal.png"
	case Earth:
		return "textures/marker_earth.png"
	case Wood:
		return "textures/marker_wood.png"
	case Water:
		return "textures/marker_water.png"
	default:
		return "textures/marker_generic.png"
	}
}

// keywords are the per-category alias sets the mapper matches detector labels
// against. Labels come from a COCO-style class list, so the aliases lean on
// everyday object names rather than the element names themselves.
var keywords = map[Category][]string{
	Fire: {
		"fire", "flame", "candle", "lighter", "torch", "fireplace",
		"stove", "oven", "lamp", "match", "campfire", "bonfire", "lantern",
	},
	Metal: {
		"metal", "knife", "scissors", "fork", "spoon", "coin", "key",
		"can", "laptop", "keyboard", "cell phone", "phone", "clock",
		"microwave", "refrigerator", "toaster", "car", "bicycle", "motorcycle",
	},
	Earth: {
		"earth", "land", "rock", "stone", "brick", "ceramic", "soil",
		"sand", "mountain", "vase", "bowl", "cup", "pot", "teddy bear",
	},
	Wood: {
		"wood", "tree", "chair", "bench", "table", "desk", "pencil",
		"door", "bed", "bookshelf", "couch", "dining table", "baseball bat",
	},
	Water: {
		"water", "bottle", "glass", "sink", "sea", "river", "lake",
		"aquarium", "rain", "wine glass", "fountain", "puddle",
	},
}
