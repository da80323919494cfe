// Package aws holds the concrete per-service scanners and the default
// registry wiring for the AWS provider.
package aws

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/stratoscan/stratoscan/pkg/arn"
	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type EC2Client interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeNatGateways(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error)
	DescribeAddresses(ctx context.Context, params *ec2.DescribeAddressesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
}

// EC2Scanner enumerates compute and core networking resources. The resource
// families are independent API surfaces, so they scan concurrently within a
// region.
type EC2Scanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) EC2Client
}

func NewEC2Scanner() *EC2Scanner {
	return &EC2Scanner{
		Base:      scanner.Base{Service: "ec2"},
		NewClient: func(cfg aws.Config) EC2Client { return ec2.NewFromConfig(cfg) },
	}
}

func (s *EC2Scanner) ServiceName() string { return "ec2" }
func (s *EC2Scanner) IsGlobal() bool      { return false }

func (s *EC2Scanner) ResourceTypes() []string {
	return []string{
		"aws_instance", "aws_ebs_volume", "aws_security_group", "aws_vpc",
		"aws_subnet", "aws_nat_gateway", "aws_eip", "aws_ebs_snapshot", "aws_ami",
	}
}

func (s *EC2Scanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var (
		mu  sync.Mutex
		out []inventory.DiscoveredResource
	)
	collect := func(res []inventory.DiscoveredResource) {
		mu.Lock()
		out = append(out, res...)
		mu.Unlock()
	}

	families := []func(context.Context, *scanner.Context, EC2Client) []inventory.DiscoveredResource{
		s.scanInstances,
		s.scanVolumes,
		s.scanSecurityGroups,
		s.scanVpcs,
		s.scanSubnets,
		s.scanNatGateways,
		s.scanAddresses,
		s.scanSnapshots,
		s.scanImages,
	}

	var wg sync.WaitGroup
	for _, fn := range families {
		wg.Add(1)
		go func(fn func(context.Context, *scanner.Context, EC2Client) []inventory.DiscoveredResource) {
			defer wg.Done()
			collect(fn(ctx, sc, client))
		}(fn)
	}
	wg.Wait()

	return out, s.Errors()
}

func (s *EC2Scanner) ec2ARN(sc *scanner.Context, resourceType, id string) string {
	return scanner.BuildARN(arn.BuildParams{
		Service:      "ec2",
		Region:       sc.Region,
		AccountID:    sc.AccountID,
		ResourceType: resourceType,
		Resource:     id,
	})
}

func (s *EC2Scanner) scanInstances(ctx context.Context, sc *scanner.Context, client EC2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})

	for paginator.HasMorePages() {
		var page *ec2.DescribeInstancesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeInstances", sc.Region, err)
			return out
		}

		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				id := aws.ToString(instance.InstanceId)
				tags := ec2Tags(instance.Tags)

				props := map[string]any{
					"instanceType": string(instance.InstanceType),
					"architecture": string(instance.Architecture),
				}
				if instance.PrivateIpAddress != nil {
					props["privateIp"] = aws.ToString(instance.PrivateIpAddress)
				}
				if instance.PublicIpAddress != nil {
					props["publicIp"] = aws.ToString(instance.PublicIpAddress)
				}

				res := scanner.CreateResource(scanner.ResourceParams{
					ID:         id,
					ARN:        s.ec2ARN(sc, "instance", id),
					NativeType: typemap.AWSEC2Instance,
					Service:    "ec2",
					Region:     sc.Region,
					Name:       scanner.GetNameFromTags(tags, id),
					Tags:       tags,
					Properties: props,
					CreatedAt:  instance.LaunchTime,
					Status:     stateName(instance.State),
				})

				if instance.VpcId != nil {
					res.AddRelationship(inventory.ResourceRelationship{
						Type:       inventory.RelationshipReferences,
						TargetARN:  s.ec2ARN(sc, "vpc", aws.ToString(instance.VpcId)),
						TargetType: "aws_vpc",
					})
				}
				if instance.SubnetId != nil {
					res.AddRelationship(inventory.ResourceRelationship{
						Type:       inventory.RelationshipReferences,
						TargetARN:  s.ec2ARN(sc, "subnet", aws.ToString(instance.SubnetId)),
						TargetType: "aws_subnet",
					})
				}
				for _, sg := range instance.SecurityGroups {
					res.AddRelationship(inventory.ResourceRelationship{
						Type:       inventory.RelationshipReferences,
						TargetARN:  s.ec2ARN(sc, "security-group", aws.ToString(sg.GroupId)),
						TargetType: "aws_security_group",
					})
				}
				if instance.ImageId != nil {
					res.AddRelationship(inventory.ResourceRelationship{
						Type:       inventory.RelationshipDependsOn,
						TargetARN:  s.ec2ARN(sc, "image", aws.ToString(instance.ImageId)),
						TargetType: "aws_ami",
					})
				}

				out = append(out, res)
			}
		}
	}
	return out
}

func (s *EC2Scanner) scanVolumes(ctx context.Context, sc *scanner.Context, client EC2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{})

	for paginator.HasMorePages() {
		var page *ec2.DescribeVolumesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeVolumes", sc.Region, err)
			return out
		}

		for _, volume := range page.Volumes {
			id := aws.ToString(volume.VolumeId)
			tags := ec2Tags(volume.Tags)

			props := map[string]any{
				"volumeType": string(volume.VolumeType),
				"encrypted":  aws.ToBool(volume.Encrypted),
			}
			if volume.Size != nil {
				props["sizeGiB"] = int(aws.ToInt32(volume.Size))
			}

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        s.ec2ARN(sc, "volume", id),
				NativeType: typemap.AWSEC2Volume,
				Service:    "ec2",
				Region:     sc.Region,
				Name:       scanner.GetNameFromTags(tags, id),
				Tags:       tags,
				Properties: props,
				CreatedAt:  volume.CreateTime,
				Status:     string(volume.State),
			})

			for _, att := range volume.Attachments {
				if att.InstanceId == nil {
					continue
				}
				res.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipAttachedTo,
					TargetARN:  s.ec2ARN(sc, "instance", aws.ToString(att.InstanceId)),
					TargetType: "aws_instance",
				})
			}

			out = append(out, res)
		}
	}
	return out
}

func (s *EC2Scanner) scanSecurityGroups(ctx context.Context, sc *scanner.Context, client EC2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := ec2.NewDescribeSecurityGroupsPaginator(client, &ec2.DescribeSecurityGroupsInput{})

	for paginator.HasMorePages() {
		var page *ec2.DescribeSecurityGroupsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeSecurityGroups", sc.Region, err)
			return out
		}

		for _, sg := range page.SecurityGroups {
			id := aws.ToString(sg.GroupId)
			tags := ec2Tags(sg.Tags)

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        s.ec2ARN(sc, "security-group", id),
				NativeType: typemap.AWSEC2SecurityGroup,
				Service:    "ec2",
				Region:     sc.Region,
				Name:       aws.ToString(sg.GroupName),
				Tags:       tags,
				Properties: map[string]any{
					"description":  aws.ToString(sg.Description),
					"ingressRules": len(sg.IpPermissions),
					"egressRules":  len(sg.IpPermissionsEgress),
				},
			})

			if sg.VpcId != nil {
				res.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipReferences,
					TargetARN:  s.ec2ARN(sc, "vpc", aws.ToString(sg.VpcId)),
					TargetType: "aws_vpc",
				})
			}

			out = append(out, res)
		}
	}
	return out
}

func (s *EC2Scanner) scanVpcs(ctx context.Context, sc *scanner.Context, client EC2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := ec2.NewDescribeVpcsPaginator(client, &ec2.DescribeVpcsInput{})

	for paginator.HasMorePages() {
		var page *ec2.DescribeVpcsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeVpcs", sc.Region, err)
			return out
		}

		for _, vpc := range page.Vpcs {
			id := aws.ToString(vpc.VpcId)
			tags := ec2Tags(vpc.Tags)

			out = append(out, scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        s.ec2ARN(sc, "vpc", id),
				NativeType: typemap.AWSEC2VPC,
				Service:    "ec2",
				Region:     sc.Region,
				Name:       scanner.GetNameFromTags(tags, id),
				Tags:       tags,
				Properties: map[string]any{
					"cidrBlock": aws.ToString(vpc.CidrBlock),
					"isDefault": aws.ToBool(vpc.IsDefault),
				},
				Status: string(vpc.State),
			}))
		}
	}
	return out
}

func (s *EC2Scanner) scanSubnets(ctx context.Context, sc *scanner.Context, client EC2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := ec2.NewDescribeSubnetsPaginator(client, &ec2.DescribeSubnetsInput{})

	for paginator.HasMorePages() {
		var page *ec2.DescribeSubnetsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeSubnets", sc.Region, err)
			return out
		}

		for _, subnet := range page.Subnets {
			id := aws.ToString(subnet.SubnetId)
			tags := ec2Tags(subnet.Tags)

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        s.ec2ARN(sc, "subnet", id),
				NativeType: typemap.AWSEC2Subnet,
				Service:    "ec2",
				Region:     sc.Region,
				Name:       scanner.GetNameFromTags(tags, id),
				Tags:       tags,
				Properties: map[string]any{
					"cidrBlock":        aws.ToString(subnet.CidrBlock),
					"availabilityZone": aws.ToString(subnet.AvailabilityZone),
				},
				Status: string(subnet.State),
			})

			if subnet.VpcId != nil {
				res.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipReferences,
					TargetARN:  s.ec2ARN(sc, "vpc", aws.ToString(subnet.VpcId)),
					TargetType: "aws_vpc",
				})
			}

			out = append(out, res)
		}
	}
	return out
}

func (s *EC2Scanner) scanNatGateways(ctx context.Context, sc *scanner.Context, client EC2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := ec2.NewDescribeNatGatewaysPaginator(client, &ec2.DescribeNatGatewaysInput{})

	for paginator.HasMorePages() {
		var page *ec2.DescribeNatGatewaysOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeNatGateways", sc.Region, err)
			return out
		}

		for _, ngw := range page.NatGateways {
			id := aws.ToString(ngw.NatGatewayId)
			tags := ec2Tags(ngw.Tags)

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        s.ec2ARN(sc, "natgateway", id),
				NativeType: typemap.AWSEC2NatGateway,
				Service:    "ec2",
				Region:     sc.Region,
				Name:       scanner.GetNameFromTags(tags, id),
				Tags:       tags,
				CreatedAt:  ngw.CreateTime,
				Status:     string(ngw.State),
			})

			if ngw.SubnetId != nil {
				res.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipReferences,
					TargetARN:  s.ec2ARN(sc, "subnet", aws.ToString(ngw.SubnetId)),
					TargetType: "aws_subnet",
				})
			}

			out = append(out, res)
		}
	}
	return out
}

func (s *EC2Scanner) scanAddresses(ctx context.Context, sc *scanner.Context, client EC2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource

	// DescribeAddresses has no paginator; the result set is bounded.
	var result *ec2.DescribeAddressesOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		result, err = client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
		return err
	})
	if err != nil {
		s.RecordAPIError("DescribeAddresses", sc.Region, err)
		return out
	}

	for _, addr := range result.Addresses {
		id := aws.ToString(addr.AllocationId)
		tags := ec2Tags(addr.Tags)

		res := scanner.CreateResource(scanner.ResourceParams{
			ID:         id,
			ARN:        s.ec2ARN(sc, "elastic-ip", id),
			NativeType: typemap.AWSEC2EIP,
			Service:    "ec2",
			Region:     sc.Region,
			Name:       scanner.GetNameFromTags(tags, aws.ToString(addr.PublicIp)),
			Tags:       tags,
			Properties: map[string]any{
				"publicIp":   aws.ToString(addr.PublicIp),
				"associated": addr.AssociationId != nil,
			},
		})

		if addr.InstanceId != nil {
			res.AddRelationship(inventory.ResourceRelationship{
				Type:       inventory.RelationshipAttachedTo,
				TargetARN:  s.ec2ARN(sc, "instance", aws.ToString(addr.InstanceId)),
				TargetType: "aws_instance",
			})
		}

		out = append(out, res)
	}
	return out
}

func (s *EC2Scanner) scanSnapshots(ctx context.Context, sc *scanner.Context, client EC2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	// Owned snapshots only; the public snapshot space is unbounded.
	paginator := ec2.NewDescribeSnapshotsPaginator(client, &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
	})

	for paginator.HasMorePages() {
		var page *ec2.DescribeSnapshotsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeSnapshots", sc.Region, err)
			return out
		}

		for _, snap := range page.Snapshots {
			id := aws.ToString(snap.SnapshotId)
			tags := ec2Tags(snap.Tags)

			props := map[string]any{
				"description": aws.ToString(snap.Description),
			}
			if snap.VolumeSize != nil {
				props["volumeSizeGiB"] = int(aws.ToInt32(snap.VolumeSize))
			}

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        s.ec2ARN(sc, "snapshot", id),
				NativeType: typemap.AWSEC2Snapshot,
				Service:    "ec2",
				Region:     sc.Region,
				Name:       scanner.GetNameFromTags(tags, id),
				Tags:       tags,
				Properties: props,
				CreatedAt:  snap.StartTime,
				Status:     string(snap.State),
			})

			if snap.VolumeId != nil && aws.ToString(snap.VolumeId) != "vol-ffffffff" {
				res.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipDependsOn,
					TargetARN:  s.ec2ARN(sc, "volume", aws.ToString(snap.VolumeId)),
					TargetType: "aws_ebs_volume",
				})
			}

			out = append(out, res)
		}
	}
	return out
}

func (s *EC2Scanner) scanImages(ctx context.Context, sc *scanner.Context, client EC2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource

	var result *ec2.DescribeImagesOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		result, err = client.DescribeImages(ctx, &ec2.DescribeImagesInput{
			Owners: []string{"self"},
		})
		return err
	})
	if err != nil {
		s.RecordAPIError("DescribeImages", sc.Region, err)
		return out
	}

	for _, img := range result.Images {
		id := aws.ToString(img.ImageId)
		tags := ec2Tags(img.Tags)

		res := scanner.CreateResource(scanner.ResourceParams{
			ID:         id,
			ARN:        s.ec2ARN(sc, "image", id),
			NativeType: typemap.AWSEC2AMI,
			Service:    "ec2",
			Region:     sc.Region,
			Name:       aws.ToString(img.Name),
			Tags:       tags,
			Properties: map[string]any{
				"creationDate": aws.ToString(img.CreationDate),
				"public":       aws.ToBool(img.Public),
			},
			Status: string(img.State),
		})

		for _, bdm := range img.BlockDeviceMappings {
			if bdm.Ebs == nil || bdm.Ebs.SnapshotId == nil {
				continue
			}
			res.AddRelationship(inventory.ResourceRelationship{
				Type:       inventory.RelationshipDependsOn,
				TargetARN:  s.ec2ARN(sc, "snapshot", aws.ToString(bdm.Ebs.SnapshotId)),
				TargetType: "aws_ebs_snapshot",
			})
		}

		out = append(out, res)
	}
	return out
}

func stateName(state *ec2types.InstanceState) string {
	if state == nil {
		return ""
	}
	return string(state.Name)
}

// ec2Tags adapts the EC2 tag shape to the canonical mapping.
func ec2Tags(tags []ec2types.Tag) map[string]string {
	pairs := make([]scanner.TagPair, len(tags))
	for i, t := range tags {
		pairs[i] = scanner.TagPair{Key: t.Key, Value: t.Value}
	}
	return scanner.TagsToRecord(pairs)
}
