package domain

// Theater is one entry of the art-house theater catalog. Code is the KOBIS
// theater code used by the schedule endpoint.
type Theater struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Area string `yaml:"area"`
}
