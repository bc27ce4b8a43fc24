package core

import "hash/fnv"

// Hash returns the 32-bit FNV-1a hash of value.
func Hash(value string) uint32 {
	hash := fnv.New32a()
	hash.Write([]byte(value))
	return hash.Sum32()
}

// Partition maps key onto one of numPartitions buckets. A non-positive
// partition count always yields bucket 0.
func Partition(key string, numPartitions int) int {
	if numPartitions <= 0 {
		return 0
	}
	return int(Hash(key) % uint32(numPartitions))
}
