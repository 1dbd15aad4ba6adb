package firewall

import "strings"

// ipsetRunner wraps commandRunner with the subset of ipset operations
// the set-based backend needs, adapted from the teacher's
// IpsetCommandService. bin is the configured IPSET_COMMAND binary name.
type ipsetRunner struct {
	run *commandRunner
	bin string
}

func newIpsetRunner(run *commandRunner, bin string) *ipsetRunner {
	if bin == "" {
		bin = "ipset"
	}
	return &ipsetRunner{run: run, bin: bin}
}

func (r *ipsetRunner) Exists(name string) bool {
	_, err := r.run.RunOutputQuiet(r.bin, "list", name)
	return err == nil
}

func (r *ipsetRunner) CreateHashIP(name string) error {
	return r.run.Run(r.bin, "create", name, "hash:ip", "-exist")
}

func (r *ipsetRunner) Add(setName, entry string) error {
	return r.run.Run(r.bin, "add", setName, entry, "-exist")
}

func (r *ipsetRunner) Test(setName, entry string) (bool, error) {
	err := r.run.Run(r.bin, "test", setName, entry)
	if err != nil {
		if strings.Contains(err.Error(), "is NOT in set") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
