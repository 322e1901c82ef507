// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

type Id int

const (
	DriverLoadFailedId Id = iota + 1
	DeviceCreateFailedId
	ServiceContainerNotRunningId
	ContainerEngineNotFoundId
	ThermalNotFoundId
	MethodNotImplementedId
	ThresholdRejectedId
	PermissionDeniedId
	ConfigLoadFailedId
	WheelInstallFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	driverLoadFailedIssue = &Issue{
		id: DriverLoadFailedId,
		mdMsg: `
# Failed to load the platform drivers!

One of the kernel modules could not be inserted.

## Things you can try:
- Check that the modules were built for the running kernel:
~~~
$ uname -r
$ modinfo accton_as9817_64_cpld
~~~
- Look at the kernel log for the failing module:
~~~
$ dmesg | tail -n 50
~~~
- Retry with ` + "`--force`" + ` to continue past the failing module`,
	}

	deviceCreateFailedIssue = &Issue{
		id: DeviceCreateFailedId,
		mdMsg: `
# Failed to create the I2C devices!

Writing to a ` + "`new_device`" + ` file was rejected.

## Things you can try:
- Make sure the drivers are loaded first:
~~~
$ as9817util status
~~~
- Remove half-created devices and start over:
~~~
$ as9817util clean --force
$ as9817util install
~~~`,
	}

	serviceContainerNotRunningIssue = &Issue{
		id: ServiceContainerNotRunningId,
		mdMsg: `
# The platform service container is not running!

Thermal thresholds are read and written through the platform API inside the
service container, which must be up.

## Things you can try:
- Check the container state:
~~~
$ docker ps --filter name=pmon
~~~
- Start it:
~~~
$ systemctl start pmon
~~~
- Point ` + "`service.container`" + ` in the config file at the right container`,
		extLinks: []HttpLink{"https://docs.docker.com/reference/cli/docker/container/exec/"},
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

Neither Docker nor Podman could be found on this system.

## Things you can try:
- Check that the engine is installed and on PATH:
~~~
$ docker version
$ podman version
~~~
- Set ` + "`container_engine`" + ` in the config file to the engine you have`,
	}

	thermalNotFoundIssue = &Issue{
		id: ThermalNotFoundId,
		mdMsg: `
# Thermal not found!

No chassis or PSU thermal carries the requested name.

## Things you can try:
- List the thermal names (they are case sensitive):
~~~
$ as9817util threshold -l
~~~`,
	}

	methodNotImplementedIssue = &Issue{
		id: MethodNotImplementedId,
		mdMsg: `
# Threshold method not implemented!

The thermal exists, but the platform API does not provide this threshold
operation for it. Some PSU thermals are read-only.`,
	}

	thresholdRejectedIssue = &Issue{
		id: ThresholdRejectedId,
		mdMsg: `
# Threshold rejected!

Thresholds must lie within [30.0 ~ 110.0] and the high threshold must stay
below the high-critical threshold.

## Things you can try:
- Read the current values first:
~~~
$ as9817util threshold -t "CPU Temp"
~~~
- Set both sides in one call to move them together:
~~~
$ as9817util threshold -t "CPU Temp" -ht 70 -hct 90
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

Loading modules and writing sysfs files requires root.

## Things you can try:
- Run the command with sudo:
~~~
$ sudo as9817util install
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration!

The configuration file could not be parsed or does not match the schema.

## Things you can try:
- Show the effective configuration:
~~~
$ as9817util config show
~~~
- Durations use Go syntax (` + "`\"500ms\"`, `\"30s\"`" + `)
- Paths must be absolute`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	wheelInstallFailedIssue = &Issue{
		id: WheelInstallFailedId,
		mdMsg: `
# Failed to install the platform API package!

## Things you can try:
- Install it by hand to see the full pip output:
~~~
$ pip3 install /usr/share/sonic/device/x86_64-accton_as9817_64o_nb-r0/sonic_platform-1.0-py3-none-any.whl
~~~`,
	}

	issues = map[Id]*Issue{
		driverLoadFailedIssue.Id():           driverLoadFailedIssue,
		deviceCreateFailedIssue.Id():         deviceCreateFailedIssue,
		serviceContainerNotRunningIssue.Id(): serviceContainerNotRunningIssue,
		containerEngineNotFoundIssue.Id():    containerEngineNotFoundIssue,
		thermalNotFoundIssue.Id():            thermalNotFoundIssue,
		methodNotImplementedIssue.Id():       methodNotImplementedIssue,
		thresholdRejectedIssue.Id():          thresholdRejectedIssue,
		permissionDeniedIssue.Id():           permissionDeniedIssue,
		configLoadFailedIssue.Id():           configLoadFailedIssue,
		wheelInstallFailedIssue.Id():         wheelInstallFailedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id - b.id) })
	return values
}

// Ids returns every registered Id in ascending order.
func Ids() []Id {
	ids := maps.Keys(issues)
	slices.Sort(ids)
	return ids
}

func Get(id Id) *Issue {
	return issues[id]
}
