package libutil

// InvalidAddress is handed to gl.InitWithProcAddrFunc for missing functions. Calling one
// then faults on a recognizable address instead of a nil pointer.
const InvalidAddress uintptr = 0xffff_ffff_ffff_ffff

type Deleter interface {
	Delete()
}

// DeleteAll releases the resources in reverse creation order. Nil entries are skipped.
func DeleteAll(resources []Deleter) {
	for i := len(resources) - 1; i >= 0; i-- {
		if resources[i] != nil {
			resources[i].Delete()
		}
	}
}
