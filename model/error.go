package model

import "fmt"

type PackageNotExist struct {
	Name  string
	Index string
}

func (e *PackageNotExist) Error() string {
	return fmt.Sprintf("the package %s does not exist on %s", e.Name, e.Index)
}

type BranchNotExist struct {
	Repository string
	Ref        string
}

func (e *BranchNotExist) Error() string {
	return fmt.Sprintf("the repository %s has no branch, tag or commit named %s", e.Repository, e.Ref)
}

type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("the URL %s could not be fetched: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
