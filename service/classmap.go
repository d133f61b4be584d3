package service

// ClassMap maps native COCO class ids to the application taxonomy.
// Ids absent from the map are outside the taxonomy and get dropped.
var ClassMap = map[int]string{
	0:  "person",
	1:  "bicycle",
	2:  "car",
	3:  "motorcycle",
	5:  "truck", // bus
	7:  "truck",
	14: "animal", // bird
	15: "animal", // cat
	16: "animal", // dog
	17: "animal", // horse
}
